package model

import "testing"

func TestParsePortSpecSingleton(t *testing.T) {
	got, err := ParsePortSpec("443")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != (PortRange{443, 443}) {
		t.Fatalf("got %+v", got)
	}
}

func TestParsePortSpecList(t *testing.T) {
	got, err := ParsePortSpec("53,443")
	if err != nil {
		t.Fatal(err)
	}
	want := []PortRange{{53, 53}, {443, 443}}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("got %+v", got)
	}
}

func TestParsePortSpecRange(t *testing.T) {
	got, err := ParsePortSpec("1000-2000")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != (PortRange{1000, 2000}) {
		t.Fatalf("got %+v", got)
	}
}

func TestParsePortSpecInvalid(t *testing.T) {
	cases := []string{"", "0", "65536", "2000-1000", "a-b", "80,", "-"}
	for _, c := range cases {
		if _, err := ParsePortSpec(c); err == nil {
			t.Errorf("expected error for %q", c)
		}
	}
}
