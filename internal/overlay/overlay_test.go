package overlay

import (
	"bytes"
	"errors"
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	imagepkg "github.com/youruser/distintivos/internal/image"
	"github.com/youruser/distintivos/internal/testsupport"
)

func TestFitPreservesAspectRatio(t *testing.T) {
	box := Rect{X: 250, Y: 500, Width: 80, Height: 80}
	cases := []struct {
		name string
		w, h int
	}{
		{"wide", 400, 100},
		{"tall", 90, 300},
		{"square", 10, 10},
		{"tiny", 1, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Fit(tc.w, tc.h, box)
			want := float64(tc.w) / float64(tc.h)
			if ratio := got.Width / got.Height; math.Abs(ratio-want) > 1e-9 {
				t.Fatalf("ratio = %v, want %v", ratio, want)
			}
			if !box.Contains(got) {
				t.Fatalf("placement %s escapes box %s", got, box)
			}
			if math.Abs(got.Width-box.Width) > 1e-9 && math.Abs(got.Height-box.Height) > 1e-9 {
				t.Fatalf("placement %s does not touch box edges", got)
			}
			cx, cy := got.X+got.Width/2, got.Y+got.Height/2
			if math.Abs(cx-290) > 1e-9 || math.Abs(cy-540) > 1e-9 {
				t.Fatalf("placement %s not centered", got)
			}
		})
	}
}

func TestFitNonSquareBox(t *testing.T) {
	got := Fit(100, 100, Rect{X: 0, Y: 0, Width: 200, Height: 50})
	want := Rect{X: 75, Y: 0, Width: 50, Height: 50}
	if got != want {
		t.Fatalf("Fit = %s, want %s", got, want)
	}
}

func TestRectValidate(t *testing.T) {
	for _, r := range []Rect{
		{Width: 0, Height: 10},
		{Width: 10, Height: -1},
		{Width: math.NaN(), Height: 1},
	} {
		if err := r.Validate(); !errors.Is(err, ErrInvalidRectangle) {
			t.Errorf("Validate(%s) = %v, want ErrInvalidRectangle", r, err)
		}
	}
	if err := (Rect{X: -5, Y: -5, Width: 1, Height: 1}).Validate(); err != nil {
		t.Errorf("negative origin should be allowed: %v", err)
	}
}

func loadBase(t *testing.T) Page {
	t.Helper()
	path := testsupport.WriteTemplate(t, t.TempDir(), "template.pdf")
	page, err := LoadPage(path)
	if err != nil {
		t.Fatalf("LoadPage returned error: %v", err)
	}
	return page
}

func TestCompositeProducesNewSinglePage(t *testing.T) {
	base := loadBase(t)
	before := base.Bytes()

	c := NewCompositor(150, nil)
	out, placed, err := c.CompositeLayer(base, Layer{
		Raster: testsupport.LogoPNG(t, 200, 100),
		Box:    Rect{X: 250, Y: 500, Width: 80, Height: 80},
	})
	if err != nil {
		t.Fatalf("CompositeLayer returned error: %v", err)
	}

	if !bytes.Equal(base.Bytes(), before) {
		t.Fatal("base page was mutated")
	}
	if bytes.Equal(out.Bytes(), before) {
		t.Fatal("composited page equals base page")
	}
	count, err := api.PageCount(bytes.NewReader(out.Bytes()), configuration())
	if err != nil {
		t.Fatalf("PageCount returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("page count = %d, want 1", count)
	}
	if want := (Rect{X: 250, Y: 520, Width: 80, Height: 40}); placed != want {
		t.Fatalf("placed = %s, want %s", placed, want)
	}
}

var (
	placementOp = regexp.MustCompile(`q (-?[\d.]+) (-?[\d.]+) (-?[\d.]+) (-?[\d.]+) (-?[\d.]+) (-?[\d.]+) cm /\w+ gs /\w+ Do Q`)
	imageSizeOp = regexp.MustCompile(`q (-?[\d.]+) 0 0 (-?[\d.]+) 0 0 cm /Im0 Do Q`)
)

// drawnStamp reads where the single image stamp on page is actually drawn:
// the translation from the page content and the size from its form.
func drawnStamp(t *testing.T, page Page) Rect {
	t.Helper()
	ctx, err := api.ReadContext(bytes.NewReader(page.Bytes()), configuration())
	if err != nil {
		t.Fatalf("ReadContext: %v", err)
	}
	d, _, _, err := ctx.PageDict(1, false)
	if err != nil {
		t.Fatalf("PageDict: %v", err)
	}
	content, err := ctx.PageContent(d)
	if err != nil {
		t.Fatalf("PageContent: %v", err)
	}
	m := placementOp.FindAllSubmatch(content, -1)
	if len(m) != 1 {
		t.Fatalf("expected one placement in page content, got %d:\n%s", len(m), content)
	}
	if num(t, m[0][1]) != 1 || num(t, m[0][2]) != 0 || num(t, m[0][3]) != 0 || num(t, m[0][4]) != 1 {
		t.Fatalf("placement is not a pure translation: %s", m[0][0])
	}
	drawn := Rect{X: num(t, m[0][5]), Y: num(t, m[0][6])}

	forms := 0
	for _, e := range ctx.XRefTable.Table {
		if e == nil || e.Object == nil {
			continue
		}
		sd, ok := e.Object.(types.StreamDict)
		if !ok || sd.Subtype() == nil || *sd.Subtype() != "Form" {
			continue
		}
		if err := sd.Decode(); err != nil {
			t.Fatalf("decode form: %v", err)
		}
		if fm := imageSizeOp.FindSubmatch(sd.Content); fm != nil {
			drawn.Width, drawn.Height = num(t, fm[1]), num(t, fm[2])
			forms++
		}
	}
	if forms != 1 {
		t.Fatalf("expected one image form, got %d", forms)
	}
	return drawn
}

func num(t *testing.T, b []byte) float64 {
	t.Helper()
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		t.Fatalf("parse %q: %v", b, err)
	}
	return v
}

func TestCompositeDrawsImageAtItsRatioInsideBox(t *testing.T) {
	box := Rect{X: 250, Y: 500, Width: 80, Height: 80}
	cases := []struct {
		name string
		dpi  float64
		w, h int
	}{
		{"narrow logo at 300 dpi", 300, 40, 390},
		{"tall logo at 72 dpi", 72, 144, 281},
		{"wide logo at 150 dpi", 150, 200, 100},
		{"coprime sides", 300, 397, 211},
		{"square", 96, 33, 33},
	}
	const tol = 1e-3
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, placed, err := NewCompositor(tc.dpi, nil).CompositeLayer(loadBase(t), Layer{
				Raster: testsupport.LogoPNG(t, tc.w, tc.h),
				Box:    box,
			})
			if err != nil {
				t.Fatalf("CompositeLayer returned error: %v", err)
			}
			drawn := drawnStamp(t, out)

			want := float64(tc.w) / float64(tc.h)
			if got := drawn.Width / drawn.Height; math.Abs(got-want)/want > 1e-4 {
				t.Fatalf("drawn %s has ratio %v, want %v", drawn, got, want)
			}
			if drawn.X < box.X-tol || drawn.Y < box.Y-tol ||
				drawn.X+drawn.Width > box.X+box.Width+tol || drawn.Y+drawn.Height > box.Y+box.Height+tol {
				t.Fatalf("drawn %s escapes box %s", drawn, box)
			}
			cx, cy := drawn.X+drawn.Width/2, drawn.Y+drawn.Height/2
			if math.Abs(cx-290) > tol || math.Abs(cy-540) > tol {
				t.Fatalf("drawn %s not centered in %s", drawn, box)
			}
			if math.Abs(drawn.Width-placed.Width) > tol || math.Abs(drawn.Height-placed.Height) > tol {
				t.Fatalf("drawn %s differs from reported placement %s", drawn, placed)
			}
		})
	}
}

func TestCompositeUsesAbsolutePageCoordinates(t *testing.T) {
	crop := [4]float64{20, 30, 600, 780}
	cases := []struct {
		name    string
		boxes   testsupport.PageBoxes
		originX float64
		originY float64
	}{
		{"offset media box", testsupport.PageBoxes{MediaBox: [4]float64{9, 9, 595, 842}}, 9, 9},
		{"crop box", testsupport.PageBoxes{MediaBox: [4]float64{0, 0, 612, 792}, CropBox: &crop}, 20, 30},
	}
	box := Rect{X: 250, Y: 500, Width: 80, Height: 80}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			base, err := PageFromBytes(testsupport.BlankPDFWithBoxes(1, tc.boxes))
			if err != nil {
				t.Fatalf("PageFromBytes returned error: %v", err)
			}
			if base.llx != tc.originX || base.lly != tc.originY {
				t.Fatalf("origin = (%g,%g), want (%g,%g)", base.llx, base.lly, tc.originX, tc.originY)
			}
			out, err := NewCompositor(96, nil).Composite(base, testsupport.LogoPNG(t, 10, 10), box)
			if err != nil {
				t.Fatalf("Composite returned error: %v", err)
			}
			drawn := drawnStamp(t, out)
			if math.Abs(drawn.X-box.X) > 1e-3 || math.Abs(drawn.Y-box.Y) > 1e-3 {
				t.Fatalf("drawn at (%g,%g), want (%g,%g)", drawn.X, drawn.Y, box.X, box.Y)
			}
		})
	}
}

func TestStampPixelsKeepExactRatio(t *testing.T) {
	cases := []struct {
		w, h, wantW, wantH int
		dpi                float64
	}{
		{40, 390, 36, 351, 300},
		{144, 281, 144, 281, 72},
		{200, 100, 168, 84, 150},
		{1, 3, 112, 336, 300},
	}
	box := Rect{Width: 80, Height: 80}
	for _, tc := range cases {
		gotW, gotH := stampPixels(tc.w, tc.h, Fit(tc.w, tc.h, box), tc.dpi)
		if gotW != tc.wantW || gotH != tc.wantH {
			t.Errorf("stampPixels(%d, %d) = %dx%d, want %dx%d", tc.w, tc.h, gotW, gotH, tc.wantW, tc.wantH)
		}
	}
}

func TestCompositeChainsLayers(t *testing.T) {
	base := loadBase(t)
	c := NewCompositor(100, nil)

	first, err := c.Composite(base, testsupport.LogoPNG(t, 50, 50), Rect{X: 10, Y: 10, Width: 40, Height: 40})
	if err != nil {
		t.Fatalf("first Composite returned error: %v", err)
	}
	qr, err := imagepkg.EncodeQRPNG("https://info/acme", 2)
	if err != nil {
		t.Fatalf("EncodeQRPNG returned error: %v", err)
	}
	second, _, err := c.CompositeLayer(first, Layer{Raster: qr, Box: Rect{X: 100, Y: 100, Width: 60, Height: 60}, Mode: imagepkg.Crisp})
	if err != nil {
		t.Fatalf("second Composite returned error: %v", err)
	}
	if second.Len() <= first.Len() {
		t.Fatalf("expected second layer to grow the document: %d <= %d", second.Len(), first.Len())
	}
}

func TestCompositeErrors(t *testing.T) {
	base := loadBase(t)
	c := NewCompositor(72, nil)

	if _, err := c.Composite(base, []byte("nope"), Rect{Width: 10, Height: 10}); !errors.Is(err, imagepkg.ErrUnsupportedImageFormat) {
		t.Fatalf("garbage raster: got %v, want ErrUnsupportedImageFormat", err)
	}
	if _, err := c.Composite(base, testsupport.LogoPNG(t, 4, 4), Rect{Width: 0, Height: 10}); !errors.Is(err, ErrInvalidRectangle) {
		t.Fatalf("zero width box: got %v, want ErrInvalidRectangle", err)
	}
}

func TestPageFromBytesTrimsToFirstPage(t *testing.T) {
	page, err := PageFromBytes(testsupport.BlankPDF(3, 200, 200))
	if err != nil {
		t.Fatalf("PageFromBytes returned error: %v", err)
	}
	count, err := api.PageCount(bytes.NewReader(page.Bytes()), configuration())
	if err != nil {
		t.Fatalf("PageCount returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("page count = %d, want 1", count)
	}
}

func TestLoadPageErrors(t *testing.T) {
	if _, err := LoadPage(filepath.Join(t.TempDir(), "missing.pdf")); err == nil {
		t.Fatal("expected error for missing template")
	}
	if _, err := PageFromBytes([]byte("not a pdf")); !errors.Is(err, ErrInvalidPage) {
		t.Fatalf("garbage pdf: got %v, want ErrInvalidPage", err)
	}
}
