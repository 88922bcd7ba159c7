package interval

import (
	"encoding/json"
	"math/rand"
	"reflect"
	"testing"
	"time"

	perr "feedvault/internal/platform/errors"
	kit "feedvault/internal/platform/testkit"
)

func iv(start, end string) Interval {
	return Interval{Start: MustDate(start), End: MustDate(end)}
}

func TestDate_RoundTrip(t *testing.T) {
	d := MustDate("2024-02-29")
	if got := d.String(); got != "2024-02-29" {
		t.Fatalf("String = %q", got)
	}
	if got := d.AddDays(1).String(); got != "2024-03-01" {
		t.Fatalf("AddDays(1) = %q", got)
	}
	if got := FromTime(time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC)); got != d {
		t.Fatalf("FromTime end of day = %s, want %s", got, d)
	}
	// a local timestamp is bucketed by its UTC day
	loc := time.FixedZone("plus3", 3*3600)
	if got := FromTime(time.Date(2024, 3, 1, 1, 0, 0, 0, loc)); got != d {
		t.Fatalf("FromTime with offset = %s, want %s", got, d)
	}
	if got := MustDate("1969-12-31").String(); got != "1969-12-31" {
		t.Fatalf("pre-epoch date = %q", got)
	}
}

func TestParseDate_Invalid(t *testing.T) {
	_, err := ParseDate("2024/01/01")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("code = %v, want InvalidArgument", perr.CodeOf(err))
	}
	kit.MustPanic(t, func() { _ = MustDate("nope") })
}

func TestNormalize(t *testing.T) {
	if _, err := Normalize(iv("2024-01-01", "2024-01-01")); err != nil {
		t.Fatalf("single day interval rejected: %v", err)
	}
	_, err := Normalize(iv("2024-01-02", "2024-01-01"))
	if err == nil {
		t.Fatalf("expected invalid range")
	}
	if !IsInvalidRange(err) {
		t.Fatalf("IsInvalidRange = false for %v", err)
	}
	if !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("code = %v", perr.CodeOf(err))
	}
}

func TestParse_FieldAttached(t *testing.T) {
	_, err := Parse("2024-01-01", "bad")
	e, ok := perr.As(err)
	if !ok || e.Field() != "end" {
		t.Fatalf("want field end, got %v", err)
	}
	got, err := Parse("2024-01-01", "2024-01-31")
	if err != nil || got.Days() != 31 {
		t.Fatalf("Parse = %v, %v", got, err)
	}
}

func TestInterval_JSON(t *testing.T) {
	b, err := json.Marshal(iv("2024-01-05", "2024-01-20"))
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"start":"2024-01-05","end":"2024-01-20"}` {
		t.Fatalf("json = %s", b)
	}
	var back Interval
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if back != iv("2024-01-05", "2024-01-20") {
		t.Fatalf("unmarshal = %v", back)
	}
	if err := json.Unmarshal([]byte(`{"start":"x","end":"2024-01-01"}`), &back); err == nil {
		t.Fatalf("expected error on bad date")
	}
}

func TestGaps_Table(t *testing.T) {
	cases := []struct {
		name    string
		req     Interval
		covered Set
		want    []Interval
	}{
		{
			name:    "covered middle leaves both ends",
			req:     iv("2024-01-01", "2024-01-30"),
			covered: Set{iv("2024-01-05", "2024-01-20")},
			want:    []Interval{iv("2024-01-01", "2024-01-04"), iv("2024-01-21", "2024-01-30")},
		},
		{
			name:    "inside one covered interval",
			req:     iv("2024-01-06", "2024-01-10"),
			covered: Set{iv("2024-01-05", "2024-01-20")},
			want:    nil,
		},
		{
			name:    "disjoint yields itself",
			req:     iv("2024-03-01", "2024-03-05"),
			covered: Set{iv("2024-01-05", "2024-01-20")},
			want:    []Interval{iv("2024-03-01", "2024-03-05")},
		},
		{
			name: "empty covered yields itself",
			req:  iv("2024-03-01", "2024-03-05"),
			want: []Interval{iv("2024-03-01", "2024-03-05")},
		},
		{
			name:    "hole between two covered",
			req:     iv("2024-01-01", "2024-01-31"),
			covered: Set{iv("2024-01-01", "2024-01-10"), iv("2024-01-15", "2024-01-31")},
			want:    []Interval{iv("2024-01-11", "2024-01-14")},
		},
		{
			name:    "covered edges exactly",
			req:     iv("2024-01-10", "2024-01-20"),
			covered: Set{iv("2024-01-01", "2024-01-10"), iv("2024-01-20", "2024-01-31")},
			want:    []Interval{iv("2024-01-11", "2024-01-19")},
		},
		{
			name:    "single day gap",
			req:     iv("2024-01-01", "2024-01-03"),
			covered: Set{iv("2024-01-01", "2024-01-01"), iv("2024-01-03", "2024-01-03")},
			want:    []Interval{iv("2024-01-02", "2024-01-02")},
		},
		{
			name:    "non canonical input is tolerated",
			req:     iv("2024-01-01", "2024-01-30"),
			covered: Set{iv("2024-01-15", "2024-01-20"), iv("2024-01-05", "2024-01-14")},
			want:    []Interval{iv("2024-01-01", "2024-01-04"), iv("2024-01-21", "2024-01-30")},
		},
		{
			name: "inverted request yields nothing",
			req:  iv("2024-01-05", "2024-01-01"),
			want: nil,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Gaps(c.req, c.covered)
			if !reflect.DeepEqual(got, c.want) {
				t.Fatalf("Gaps(%v, %v) = %v, want %v", c.req, c.covered, got, c.want)
			}
		})
	}
}

func TestMerge_Table(t *testing.T) {
	cases := []struct {
		name    string
		covered Set
		in      Interval
		want    Set
	}{
		{"into empty", nil, iv("2024-01-01", "2024-01-02"), Set{iv("2024-01-01", "2024-01-02")}},
		{
			"adjacent after",
			Set{iv("2024-01-01", "2024-01-04")},
			iv("2024-01-05", "2024-01-09"),
			Set{iv("2024-01-01", "2024-01-09")},
		},
		{
			"adjacent before",
			Set{iv("2024-01-05", "2024-01-09")},
			iv("2024-01-01", "2024-01-04"),
			Set{iv("2024-01-01", "2024-01-09")},
		},
		{
			"overlap",
			Set{iv("2024-01-01", "2024-01-10")},
			iv("2024-01-05", "2024-01-15"),
			Set{iv("2024-01-01", "2024-01-15")},
		},
		{
			"one day apart stays split",
			Set{iv("2024-01-01", "2024-01-04")},
			iv("2024-01-06", "2024-01-09"),
			Set{iv("2024-01-01", "2024-01-04"), iv("2024-01-06", "2024-01-09")},
		},
		{
			"bridge collapses chain",
			Set{iv("2024-01-01", "2024-01-04"), iv("2024-01-10", "2024-01-12"), iv("2024-01-20", "2024-01-25")},
			iv("2024-01-05", "2024-01-19"),
			Set{iv("2024-01-01", "2024-01-25")},
		},
		{
			"inverted interval ignored",
			Set{iv("2024-01-01", "2024-01-04")},
			iv("2024-01-09", "2024-01-06"),
			Set{iv("2024-01-01", "2024-01-04")},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Merge(c.covered, c.in)
			if !reflect.DeepEqual(got, c.want) {
				t.Fatalf("Merge = %v, want %v", got, c.want)
			}
			if !got.Canonical() {
				t.Fatalf("result not canonical: %v", got)
			}
		})
	}
}

func TestMerge_DoesNotAliasInput(t *testing.T) {
	in := Set{iv("2024-01-10", "2024-01-12")}
	_ = Merge(in, iv("2024-01-01", "2024-01-11"))
	if in[0] != iv("2024-01-10", "2024-01-12") {
		t.Fatalf("input mutated: %v", in)
	}
}

func TestMerge_TwoDisjointThenBridge(t *testing.T) {
	i1 := iv("2024-01-01", "2024-01-05")
	i2 := iv("2024-01-10", "2024-01-15")
	s := Merge(Merge(nil, i1), i2)
	if len(s) != 2 {
		t.Fatalf("want two intervals, got %v", s)
	}
	s = Merge(s, iv("2024-01-06", "2024-01-09"))
	if !reflect.DeepEqual(s, Set{iv("2024-01-01", "2024-01-15")}) {
		t.Fatalf("bridge did not collapse: %v", s)
	}
}

// randomized properties over small date ranges so collisions are frequent
func TestProperties_Randomized(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	base := MustDate("2024-01-01")
	randIv := func() Interval {
		a := base.AddDays(rng.Intn(60))
		b := a.AddDays(rng.Intn(10))
		return Interval{Start: a, End: b}
	}

	for round := 0; round < 500; round++ {
		var c Set
		for i := rng.Intn(6); i > 0; i-- {
			c = Merge(c, randIv())
		}
		r := randIv()

		merged := Merge(c, r)
		if g := Gaps(r, merged); len(g) != 0 {
			t.Fatalf("round %d: Gaps(R, Merge(C, R)) = %v", round, g)
		}
		if again := Merge(merged, r); !reflect.DeepEqual(again, merged) {
			t.Fatalf("round %d: merge not idempotent: %v vs %v", round, again, merged)
		}
		if !merged.Canonical() {
			t.Fatalf("round %d: not canonical %v", round, merged)
		}

		// gaps plus covered part account for every requested day exactly once
		gaps := Gaps(r, c)
		seen := map[Date]int{}
		for _, g := range gaps {
			if g.Start > g.End || !r.Contains(g.Start) || !r.Contains(g.End) {
				t.Fatalf("round %d: bad gap %v for %v", round, g, r)
			}
			for d := g.Start; d <= g.End; d++ {
				seen[d]++
			}
		}
		for d := r.Start; d <= r.End; d++ {
			inCovered := c.Covers(Interval{Start: d, End: d})
			if inCovered && seen[d] != 0 || !inCovered && seen[d] != 1 {
				t.Fatalf("round %d: day %s covered=%v seen=%d", round, d, inCovered, seen[d])
			}
		}
		for i := 1; i < len(gaps); i++ {
			if gaps[i].Start <= gaps[i-1].End+1 {
				t.Fatalf("round %d: gaps not disjoint/ascending %v", round, gaps)
			}
		}
	}
}

func TestSet_DaysAndClone(t *testing.T) {
	s := Set{iv("2024-01-01", "2024-01-03"), iv("2024-01-10", "2024-01-10")}
	if s.Days() != 4 {
		t.Fatalf("Days = %d", s.Days())
	}
	c := s.Clone()
	c[0].End = MustDate("2024-01-09")
	if s[0].End != MustDate("2024-01-03") {
		t.Fatalf("clone aliases original")
	}
	if Set(nil).Clone() != nil {
		t.Fatalf("nil clone should stay nil")
	}
}
