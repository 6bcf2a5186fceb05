package testsupport

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// BlankPDF builds a minimal valid PDF with the given number of pages, each
// w×h points with a filled square so merges have content underneath.
func BlankPDF(pages int, w, h float64) []byte {
	return BlankPDFWithBoxes(pages, PageBoxes{MediaBox: [4]float64{0, 0, w, h}})
}

// PageBoxes holds page boundaries as [llx lly urx ury]. A nil CropBox is
// left out of the page dictionary.
type PageBoxes struct {
	MediaBox [4]float64
	CropBox  *[4]float64
}

// BlankPDFWithBoxes is BlankPDF with explicit page boundaries.
func BlankPDFWithBoxes(pages int, boxes PageBoxes) []byte {
	if pages < 1 {
		pages = 1
	}
	var buf bytes.Buffer
	offsets := []int{}
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	obj("<< /Type /Catalog /Pages 2 0 R >>")

	kids := ""
	for i := 0; i < pages; i++ {
		kids += fmt.Sprintf("%d 0 R ", 3+2*i)
	}
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, pages))

	bounds := "/MediaBox " + boxArray(boxes.MediaBox)
	if boxes.CropBox != nil {
		bounds += " /CropBox " + boxArray(*boxes.CropBox)
	}
	content := "0 0 1 rg 10 10 50 50 re f"
	for i := 0; i < pages; i++ {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R %s /Resources << >> /Contents %d 0 R >>", bounds, 4+2*i))
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func boxArray(b [4]float64) string {
	return fmt.Sprintf("[%g %g %g %g]", b[0], b[1], b[2], b[3])
}

// WriteTemplate writes a one-page A4 template into dir and returns its path.
func WriteTemplate(t testing.TB, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, BlankPDF(1, 595, 842), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
	return path
}

// LogoPNG returns a w×h PNG whose left half is opaque red and right half
// transparent.
func LogoPNG(t testing.TB, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w/2; x++ {
		for y := 0; y < h; y++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 0xff, A: 0xff})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode logo: %v", err)
	}
	return buf.Bytes()
}

// WriteFile writes data under dir and returns the path.
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// MustDir creates dir (and parents) and returns it.
func MustDir(t testing.TB, dir string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	return dir
}
