package binimage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseReader(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		format  Format
		base    uint32
		want    []Segment
		wantErr bool
		errMsg  string
	}{
		{
			name:   "raw at base",
			input:  []byte{0xA9, 0x42, 0x60},
			format: FormatRaw,
			base:   0x1FC000,
			want:   []Segment{{Address: 0x1FC000, Data: []byte{0xA9, 0x42, 0x60}}},
		},
		{
			name:   "prg load address",
			input:  []byte{0x01, 0x08, 0x0B, 0x08, 0x0A, 0x00},
			format: FormatPRG,
			base:   0x5000,
			want:   []Segment{{Address: 0x0801, Data: []byte{0x0B, 0x08, 0x0A, 0x00}}},
		},
		{
			name:   "intel hex",
			input:  []byte(":0300300002337A1E\n:00000001FF\n"),
			format: FormatIntelHex,
			want:   []Segment{{Address: 0x0030, Data: []byte{0x02, 0x33, 0x7A}}},
		},
		{
			name:    "prg without payload",
			input:   []byte{0x01, 0x08},
			format:  FormatPRG,
			wantErr: true,
			errMsg:  "image is empty",
		},
		{
			name:    "prg truncated header",
			input:   []byte{0x01},
			format:  FormatPRG,
			wantErr: true,
			errMsg:  "load address",
		},
		{
			name:    "empty raw",
			input:   nil,
			format:  FormatRaw,
			wantErr: true,
			errMsg:  "image is empty",
		},
		{
			name:    "intel hex bad checksum",
			input:   []byte(":0300300002337A1F\n:00000001FF\n"),
			format:  FormatIntelHex,
			wantErr: true,
			errMsg:  "ihex",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := ParseReader(bytes.NewReader(tt.input), tt.format, tt.base)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tt.errMsg)
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Errorf("error = %v, want substring %q", err, tt.errMsg)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if img.Format != tt.format {
				t.Errorf("format = %v, want %v", img.Format, tt.format)
			}
			if diff := cmp.Diff(tt.want, img.Segments); diff != "" {
				t.Errorf("segments mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSaveAndParse(t *testing.T) {
	data := make([]byte, 40)
	for i := range data {
		data[i] = byte(i * 7)
	}

	tests := []struct {
		format Format
		addr   uint32
	}{
		{FormatRaw, 0x1000},
		{FormatPRG, 0x0801},
		{FormatIntelHex, 0x012340},
	}

	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			var buf bytes.Buffer
			if err := Save(&buf, tt.format, tt.addr, data); err != nil {
				t.Fatalf("Save: %v", err)
			}

			img, err := ParseReader(&buf, tt.format, tt.addr)
			if err != nil {
				t.Fatalf("ParseReader: %v", err)
			}
			want := []Segment{{Address: tt.addr, Data: data}}
			if diff := cmp.Diff(want, img.Segments); diff != "" {
				t.Errorf("segments mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSavePRGAddressRange(t *testing.T) {
	err := Save(&bytes.Buffer{}, FormatPRG, 0x10000, []byte{1})
	if err == nil || !strings.Contains(err.Error(), "16 bits") {
		t.Errorf("error = %v, want 16-bit range error", err)
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hello.prg")
	if err := os.WriteFile(path, []byte{0x00, 0x02, 0xEA, 0x60}, 0o644); err != nil {
		t.Fatal(err)
	}

	img, err := Parse(path, DetectFormat(path), 0)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if img.Segments[0].Address != 0x0200 || img.Size() != 2 {
		t.Errorf("segment = %+v, want 2 bytes at 0x0200", img.Segments[0])
	}

	if _, err := Parse(filepath.Join(t.TempDir(), "missing.bin"), FormatRaw, 0); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDetectFormat(t *testing.T) {
	tests := map[string]Format{
		"hello.prg":    FormatPRG,
		"HELLO.PRG":    FormatPRG,
		"rom.hex":      FormatIntelHex,
		"rom.ihx":      FormatIntelHex,
		"blink.bin":    FormatRaw,
		"no-extension": FormatRaw,
	}
	for path, want := range tests {
		if got := DetectFormat(path); got != want {
			t.Errorf("DetectFormat(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	f, ok, err := ParseFormat("hex")
	if err != nil || !ok || f != FormatIntelHex {
		t.Errorf("ParseFormat(hex) = %v, %v, %v", f, ok, err)
	}
	if _, ok, err := ParseFormat(""); ok || err != nil {
		t.Errorf("ParseFormat(\"\") = %v, %v, want not ok and no error", ok, err)
	}
	if _, _, err := ParseFormat("srec"); err == nil {
		t.Error("expected error for unknown format")
	}
}

type recordingWriter struct {
	writes []Segment
	failAt int
}

func (w *recordingWriter) BusWrite(_ context.Context, addr uint32, data []byte) error {
	if len(w.writes) == w.failAt {
		return errors.New("bus fault")
	}
	w.writes = append(w.writes, Segment{Address: addr, Data: data})
	return nil
}

func TestWriteTo(t *testing.T) {
	img := &Image{Segments: []Segment{
		{Address: 0x0200, Data: []byte{0xA9, 0x01}},
		{Address: 0xFFFC, Data: []byte{0x00, 0x02}},
	}}

	w := &recordingWriter{failAt: -1}
	var done []uint32
	if err := img.WriteTo(context.Background(), w, func(s Segment) { done = append(done, s.End()) }); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if diff := cmp.Diff(img.Segments, w.writes); diff != "" {
		t.Errorf("writes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]uint32{0x0202, 0xFFFE}, done); diff != "" {
		t.Errorf("callback mismatch (-want +got):\n%s", diff)
	}

	w = &recordingWriter{failAt: 1}
	err := img.WriteTo(context.Background(), w, nil)
	if err == nil || !strings.Contains(err.Error(), "segment 1 at 0x00FFFC") {
		t.Errorf("error = %v, want failure at segment 1", err)
	}
}
