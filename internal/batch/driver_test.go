package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/youruser/distintivos/internal/assets"
	"github.com/youruser/distintivos/internal/badge"
	"github.com/youruser/distintivos/internal/entities"
	imagepkg "github.com/youruser/distintivos/internal/image"
	"github.com/youruser/distintivos/internal/overlay"
	"github.com/youruser/distintivos/internal/testsupport"
	"github.com/youruser/distintivos/internal/util"
)

type env struct {
	root, logos, dest, qrs string
}

func newEnv(t *testing.T) env {
	t.Helper()
	root := t.TempDir()
	return env{
		root:  root,
		logos: testsupport.MustDir(t, filepath.Join(root, "logos")),
		dest:  testsupport.MustDir(t, filepath.Join(root, "distintivos")),
		qrs:   testsupport.MustDir(t, filepath.Join(root, "qrs")),
	}
}

// spyAssembler records every document the real assembler produces.
type spyAssembler struct {
	*badge.Assembler
	docs []badge.Document
}

func (s *spyAssembler) Assemble(logo []byte, override *overlay.Rect, qr []byte) (badge.Document, error) {
	doc, err := s.Assembler.Assemble(logo, override, qr)
	if err == nil {
		s.docs = append(s.docs, doc)
	}
	return doc, err
}

type writeCounter struct {
	paths []string
}

func (w *writeCounter) write(path string, data []byte, perm os.FileMode) error {
	w.paths = append(w.paths, path)
	return util.WriteFileAtomic(path, data, perm)
}

func newDriver(t *testing.T, e env, qrBox *overlay.Rect, overwrite bool) (*Driver, *spyAssembler, *writeCounter) {
	t.Helper()
	tpl := badge.Template{
		SourcePath: testsupport.WriteTemplate(t, e.root, "plantilla.pdf"),
		LogoBox:    overlay.Rect{X: 250, Y: 500, Width: 80, Height: 80},
		QRBox:      qrBox,
	}
	a, err := badge.NewAssembler(tpl, overlay.NewCompositor(96, nil), nil)
	if err != nil {
		t.Fatalf("NewAssembler: %v", err)
	}
	cache := assets.NewQRCache(e.qrs, func(p string) ([]byte, error) { return imagepkg.EncodeQRPNG(p, 2) }, nil)
	t.Cleanup(func() { _ = cache.Close() })
	spy := &spyAssembler{Assembler: a}
	writes := &writeCounter{}
	d := NewDriver(assets.NewResolver(e.logos, e.dest, overwrite, cache, nil, nil), spy, nil)
	d.writeFile = writes.write
	return d, spy, writes
}

func acme() entities.Record {
	return entities.Record{Row: 2, Name: "Acme", LogoReference: "https://x/logoA.png", InfoPayload: "https://info/acme"}
}

func TestRunScenarioALogoOnly(t *testing.T) {
	e := newEnv(t)
	testsupport.WriteFile(t, e.logos, "logoA.png", testsupport.LogoPNG(t, 100, 50))
	d, spy, _ := newDriver(t, e, nil, false)

	report := d.Run(context.Background(), []entities.Record{acme()})
	if report.Succeeded != 1 || report.Total() != 1 || !report.OK() {
		t.Fatalf("unexpected report: %+v", report)
	}
	want := filepath.Join(e.dest, "Acme.pdf")
	if got := report.Results[0].Destination; got != want {
		t.Fatalf("destination = %q, want %q", got, want)
	}
	data, err := os.ReadFile(want)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	if _, err := overlay.PageFromBytes(data); err != nil {
		t.Fatalf("output is not a valid document: %v", err)
	}
	if len(spy.docs) != 1 || spy.docs[0].QR != nil {
		t.Fatalf("expected one document without QR, got %+v", spy.docs)
	}
	if got, box := spy.docs[0].Logo, (overlay.Rect{X: 250, Y: 500, Width: 80, Height: 80}); !box.Contains(got) {
		t.Fatalf("logo %s not inside %s", got, box)
	}
	if report.RunID == "" {
		t.Fatal("expected a run id")
	}
}

func TestRunScenarioBCreatesQR(t *testing.T) {
	e := newEnv(t)
	testsupport.WriteFile(t, e.logos, "logoA.png", testsupport.LogoPNG(t, 80, 80))
	qrBox := overlay.Rect{X: 100, Y: 100, Width: 60, Height: 60}
	d, spy, _ := newDriver(t, e, &qrBox, false)

	report := d.Run(context.Background(), []entities.Record{acme()})
	if report.Succeeded != 1 {
		t.Fatalf("unexpected report: %+v", report.Results)
	}
	if !report.Results[0].QRCreated {
		t.Fatal("expected a freshly generated QR")
	}
	cached, err := os.ReadFile(filepath.Join(e.qrs, "logoA.png"))
	if err != nil {
		t.Fatalf("qr not cached at qrs/logoA.png: %v", err)
	}
	want, err := imagepkg.EncodeQRPNG(acme().InfoPayload, 2)
	if err != nil {
		t.Fatalf("EncodeQRPNG: %v", err)
	}
	if !bytes.Equal(cached, want) {
		t.Fatalf("qrs/logoA.png does not encode %q", acme().InfoPayload)
	}
	if spy.docs[0].QR == nil || !qrBox.Contains(*spy.docs[0].QR) {
		t.Fatalf("qr placement %v not inside %s", spy.docs[0].QR, qrBox)
	}
}

func TestRunScenarioCSkipLaw(t *testing.T) {
	e := newEnv(t)
	testsupport.WriteFile(t, e.logos, "logoA.png", testsupport.LogoPNG(t, 80, 80))
	existing := testsupport.WriteFile(t, e.dest, "Acme.pdf", []byte("previous run"))
	d, spy, writes := newDriver(t, e, nil, false)

	report := d.Run(context.Background(), []entities.Record{acme()})
	if report.Skipped != 1 || report.Results[0].Outcome != Skipped {
		t.Fatalf("expected skip, got %+v", report.Results)
	}
	if len(writes.paths) != 0 || len(spy.docs) != 0 {
		t.Fatalf("skip must not assemble or write: writes=%v docs=%d", writes.paths, len(spy.docs))
	}
	data, _ := os.ReadFile(existing)
	if string(data) != "previous run" {
		t.Fatal("existing output was modified")
	}
}

func TestRunOverwriteReplacesOutput(t *testing.T) {
	e := newEnv(t)
	testsupport.WriteFile(t, e.logos, "logoA.png", testsupport.LogoPNG(t, 80, 80))
	testsupport.WriteFile(t, e.dest, "Acme.pdf", []byte("previous run"))
	d, _, writes := newDriver(t, e, nil, true)

	report := d.Run(context.Background(), []entities.Record{acme()})
	if report.Succeeded != 1 || len(writes.paths) != 1 {
		t.Fatalf("expected one write, got %+v writes=%v", report.Results, writes.paths)
	}
}

func TestRunScenarioDAndEContinue(t *testing.T) {
	e := newEnv(t)
	testsupport.WriteFile(t, e.logos, "logoA.png", testsupport.LogoPNG(t, 80, 80))
	d, _, _ := newDriver(t, e, nil, false)

	records := []entities.Record{
		{Row: 2, Name: "  ", LogoReference: "logoA.png"},
		{Row: 3, Name: "Missing", LogoReference: "https://x/nope.png"},
		acme(),
	}
	report := d.Run(context.Background(), records)

	if report.Rejected != 1 || report.Failed != 1 || report.Succeeded != 1 {
		t.Fatalf("unexpected counts: %+v", report)
	}
	if report.OK() {
		t.Fatal("a failed record must make the report not OK")
	}
	if r := report.Results[0]; r.Outcome != Rejected || r.Kind != KindInvalidRecord {
		t.Fatalf("row 2: %+v", r)
	}
	r := report.Results[1]
	if r.Outcome != Failed || r.Kind != KindLogoNotFound || !errors.Is(r.Err, assets.ErrLogoNotFound) || r.Error == "" {
		t.Fatalf("row 3: %+v", r)
	}
	if report.Results[2].Outcome != Succeeded {
		t.Fatalf("row 4 should still succeed: %+v", report.Results[2])
	}
	for i, res := range report.Results {
		if res.Row != records[i].Row {
			t.Fatalf("results out of input order: %+v", report.Results)
		}
	}
}

type countingResolver struct {
	calls int
}

func (c *countingResolver) Resolve(context.Context, entities.Record, bool) (assets.Resolution, error) {
	c.calls++
	return assets.Resolution{}, assets.ErrLogoNotFound
}

type panickingAssembler struct{}

func (panickingAssembler) Template() badge.Template {
	return badge.Template{LogoBox: overlay.Rect{Width: 1, Height: 1}}
}

func (panickingAssembler) Assemble([]byte, *overlay.Rect, []byte) (badge.Document, error) {
	panic("boom")
}

func TestRejectedRecordsNeverReachResolver(t *testing.T) {
	res := &countingResolver{}
	d := NewDriver(res, panickingAssembler{}, nil)

	report := d.Run(context.Background(), []entities.Record{
		{Row: 2, Name: "", LogoReference: "a.png"},
		{Row: 3, Name: "Acme", LogoReference: ""},
		{Row: 4, Name: "Acme", LogoReference: "a.png"},
	})
	if res.calls != 1 {
		t.Fatalf("resolver called %d times, want 1", res.calls)
	}
	if report.Rejected != 2 || report.Failed != 1 {
		t.Fatalf("unexpected counts: %+v", report)
	}
}

type readyResolver struct{ logo string }

func (r readyResolver) Resolve(context.Context, entities.Record, bool) (assets.Resolution, error) {
	return assets.Resolution{Paths: assets.ResolvedPaths{LogoPath: r.logo, DestinationPath: r.logo + ".pdf"}}, nil
}

func TestPanicIsIsolatedToRecord(t *testing.T) {
	logo := testsupport.WriteFile(t, t.TempDir(), "a.png", []byte("x"))
	d := NewDriver(readyResolver{logo: logo}, panickingAssembler{}, nil)

	report := d.Run(context.Background(), []entities.Record{
		{Row: 2, Name: "A", LogoReference: "a.png"},
		{Row: 3, Name: "B", LogoReference: "a.png"},
	})
	if report.Failed != 2 {
		t.Fatalf("expected both records to fail, got %+v", report.Results)
	}
	if report.Results[0].Kind != KindInternal {
		t.Fatalf("kind = %q, want %q", report.Results[0].Kind, KindInternal)
	}
}

func TestRunCanceledMarksRemainingFailed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := NewDriver(&countingResolver{}, panickingAssembler{}, nil)

	report := d.Run(ctx, []entities.Record{{Row: 2, Name: "A", LogoReference: "a.png"}})
	if report.Failed != 1 || report.Results[0].Kind != KindCanceled {
		t.Fatalf("unexpected report: %+v", report.Results)
	}
}

func TestKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{entities.ErrInvalidRecord, KindInvalidRecord},
		{imagepkg.ErrCapacityExceeded, KindCapacityExceeded},
		{fmt.Errorf("wrap: %w", imagepkg.ErrEncoding), KindEncodingError},
		{fmt.Errorf("wrap: %w", imagepkg.ErrUnsupportedImageFormat), KindUnsupportedImageFormat},
		{overlay.ErrInvalidRectangle, KindInvalidRectangle},
		{badge.ErrMissingQrBox, KindMissingQrBox},
		{assets.ErrQrDirectoryNotFound, KindQrDirectoryNotFound},
		{errors.New("disk on fire"), KindInternal},
	}
	for _, tc := range cases {
		if got := Kind(tc.err); got != tc.want {
			t.Errorf("Kind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
