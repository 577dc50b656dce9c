package memorywriter

import (
	"bytes"
	"compress/gzip"
	"io/ioutil"
	"strconv"
	"strings"
	"testing"
)

func TestRotation(t *testing.T) {
	m, err := New(3, 2, false, nil)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 10; i++ {
		m.Log("line " + strconv.Itoa(i))
	}

	out, err := m.String("head\n")
	if err != nil {
		t.Fatal(err)
	}

	// first two lines survive rotation, only the last three are kept
	for _, want := range []string{"head", "line 0", "line 1", "line 7", "line 8", "line 9"} {
		if !strings.Contains(out, want+"\n") {
			t.Errorf("output misses %q:\n%s", want, out)
		}
	}
	for _, gone := range []string{"line 2", "line 5", "line 6"} {
		if strings.Contains(out, gone+"\n") {
			t.Errorf("output still has rotated %q:\n%s", gone, out)
		}
	}
}

func TestLongLineTruncated(t *testing.T) {
	m, err := New(5, 1, false, nil)
	if err != nil {
		t.Fatal(err)
	}

	m.Log(strings.Repeat("x", 2*maxLineLength))

	out, err := m.String("")
	if err != nil {
		t.Fatal(err)
	}
	if len(out) > maxLineLength+10 {
		t.Errorf("long line not truncated, output is %d bytes", len(out))
	}
}

func TestOutWriterMirror(t *testing.T) {
	var mirror bytes.Buffer
	m, err := New(5, 1, false, &mirror)
	if err != nil {
		t.Fatal(err)
	}

	m.Log("hello")
	if !strings.Contains(mirror.String(), "hello\n") {
		t.Errorf("mirror = %q", mirror.String())
	}
}

func TestGzipRoundTrip(t *testing.T) {
	m, err := New(5, 1, true, nil)
	if err != nil {
		t.Fatal(err)
	}

	m.Log("compressed line")

	gz, err := m.Gzip("version 1\n")
	if err != nil {
		t.Fatal(err)
	}

	gr, err := gzip.NewReader(bytes.NewReader(gz))
	if err != nil {
		t.Fatal(err)
	}
	plain, err := ioutil.ReadAll(gr)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(plain), "compressed line") {
		t.Errorf("decompressed = %q", plain)
	}
	if !strings.Contains(string(plain), "version 1") {
		t.Errorf("start text missing from %q", plain)
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(0, 1, false, nil); err == nil {
		t.Error("size 0 accepted")
	}
	if _, err := New(1, 0, false, nil); err == nil {
		t.Error("startSize 0 accepted")
	}
}
