package codegen

import (
	"strings"
	"testing"
)

func TestBufferAssemblesInRegionOrder(t *testing.T) {
	buf := NewBuffer()
	// Emission order deliberately inverted relative to region order.
	buf.Append(RegionBody, "x = 1;\n")
	buf.Append(RegionHeader, "y = 2;\n")

	want := "// region header\n" +
		"y = 2;\n" +
		"// region body\n" +
		"x = 1;\n"
	if got := buf.String(); got != want {
		t.Fatalf("assembled source mismatch:\nwant:\n%s\ngot:\n%s", want, got)
	}
}

func TestBufferSkipsAbsentRegions(t *testing.T) {
	buf := NewBuffer()
	buf.Append(RegionTail, "end\n")

	got := buf.String()
	if strings.Contains(got, "// region header") {
		t.Fatalf("empty region produced a marker:\n%s", got)
	}
	if !strings.Contains(got, "// region tail") {
		t.Fatalf("missing tail marker:\n%s", got)
	}
	if buf.Len() != 1 {
		t.Fatalf("want 1 populated region, got %d", buf.Len())
	}
}

func TestBufferInterleavedAppends(t *testing.T) {
	buf := NewBuffer()
	buf.Append(RegionResidualBody, "r1\n")
	buf.Append(RegionBody, "b1\n")
	buf.Append(RegionResidualBody, "r2\n")
	buf.Append(RegionBody, "b2\n")

	want := "// region body\nb1\nb2\n// region residual_body\nr1\nr2\n"
	if got := buf.String(); got != want {
		t.Fatalf("want:\n%s\ngot:\n%s", want, got)
	}
}
