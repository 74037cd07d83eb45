package model

import "testing"

func TestAppendScaledInt(t *testing.T) {
	cases := []struct {
		value int64
		scale int
		want  string
	}{
		{10002, 2, "100.02"},
		{9999, 2, "99.99"},
		{1, 2, "0.01"},
		{-35, 2, "-0.35"},
		{70, 0, "70"},
		{5, 4, "0.0005"},
	}

	for _, c := range cases {
		got := string(appendScaledInt(nil, c.value, c.scale))
		if got != c.want {
			t.Fatalf("appendScaledInt(%d, %d) = %q, want %q", c.value, c.scale, got, c.want)
		}
	}
}

func TestParseScaled(t *testing.T) {
	cases := []struct {
		in      string
		scale   int
		want    int64
		wantErr bool
	}{
		{"100.02", 2, 10002, false},
		{"0.01", 2, 1, false},
		{".5", 2, 50, false},
		{"70", 2, 7000, false},
		{"-1.5", 2, -150, false},
		{"100.500", 2, 10050, false},
		{"0.001", 2, 0, true},
		{"1.2.3", 2, 0, true},
		{"", 2, 0, true},
		{"abc", 2, 0, true},
	}

	for _, c := range cases {
		got, err := ParseScaled(c.in, c.scale)
		if c.wantErr {
			if err == nil {
				t.Fatalf("ParseScaled(%q, %d): expected error, got %d", c.in, c.scale, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseScaled(%q, %d): %v", c.in, c.scale, err)
		}
		if got != c.want {
			t.Fatalf("ParseScaled(%q, %d) = %d, want %d", c.in, c.scale, got, c.want)
		}
	}
}

func TestParseScaledRoundTrip(t *testing.T) {
	for _, s := range []string{"100.02", "0.01", "12345.67", "-0.35"} {
		v, err := ParseScaled(s, 2)
		if err != nil {
			t.Fatalf("ParseScaled(%q): %v", s, err)
		}
		if got := Price(v).Text(2); got != s {
			t.Fatalf("round-trip %q -> %d -> %q", s, v, got)
		}
	}
}
