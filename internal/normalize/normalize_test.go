package normalize

import "testing"

func TestTextCollapsesWhitespace(t *testing.T) {
	in := "Grain  size\t\tof 15  um\n\n\n\n\nnext   line"
	want := "Grain size of 15 " + Micro + "m\n\nnext line"
	if got := Text(in); got != want {
		t.Fatalf("unexpected normalization:\n got %q\nwant %q", got, want)
	}
}

func TestTextCanonicalizesMicroGlyphs(t *testing.T) {
	cases := map[string]string{
		"15 Î¼m":            "15 " + Micro + "m",
		"15 Âµm":            "15 " + Micro + "m",
		"15 µm":             "15 " + Micro + "m",
		"15um":              "15" + Micro + "m",
		"aluminum sheet":    "aluminum sheet",
		"maximum of 3 MPa":  "maximum of 3 MPa",
		"CRLF\r\nline\rend": "CRLF\nline\nend",
	}
	for in, want := range cases {
		if got := Text(in); got != want {
			t.Errorf("Text(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTextIsIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"plain",
		"a \t b\n\n\n\nc 12 um µm",
		"  leading and trailing  \n\n\n",
		"Mg+3 %Al+1 %Zn\n \n \n \nend",
	}
	for _, in := range inputs {
		once := Text(in)
		if twice := Text(once); twice != once {
			t.Errorf("not idempotent for %q: %q != %q", in, twice, once)
		}
	}
}

func TestUnitsLeavesWhitespaceAlone(t *testing.T) {
	in := "size  of 15 um"
	if got := Units(in); got != "size  of 15 "+Micro+"m" {
		t.Fatalf("unexpected: %q", got)
	}
}

func TestTextHandlesNonBreakingSpaceBeforeUnit(t *testing.T) {
	in := "15 um"
	got := Text(in)
	if got != "15 "+Micro+"m" {
		t.Fatalf("unexpected: %q", got)
	}
	if Text(got) != got {
		t.Fatalf("not idempotent: %q", Text(got))
	}
}

func TestThousands(t *testing.T) {
	cases := map[string]string{
		"1,500 MPa":        "1500 MPa",
		"1,234,567 grains": "1234567 grains",
		"1,5 %":            "1,5 %",
		"15, 20 and 30":    "15, 20 and 30",
		"1,5000":           "1,5000",
		"1,500.5 MPa":      "1500.5 MPa",
	}
	for in, want := range cases {
		if got := Thousands(in); got != want {
			t.Errorf("Thousands(%q) = %q, want %q", in, got, want)
		}
	}
}
