package probe

import "testing"

func TestParseStatusCodes_RangesAndSingles(t *testing.T) {
	set, err := ParseStatusCodes("200-299, 304")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	for _, c := range []int{200, 250, 299, 304} {
		if !set.Contains(c) {
			t.Fatalf("want %d in set", c)
		}
	}
	for _, c := range []int{199, 300, 303, 404} {
		if set.Contains(c) {
			t.Fatalf("did not want %d in set", c)
		}
	}
}

func TestParseStatusCodes_EmptyMeans200(t *testing.T) {
	set, err := ParseStatusCodes("")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !set.Contains(200) || set.Contains(201) {
		t.Fatalf("want exactly 200, got %q", set)
	}
}

func TestParseStatusCodes_Malformed(t *testing.T) {
	for _, expr := range []string{"abc", "200-", "99", "600", "300-200", "200,,201"} {
		if _, err := ParseStatusCodes(expr); err == nil {
			t.Fatalf("want error for %q", expr)
		}
	}
}
