package ingest

import "testing"

func TestReporter_Modulus(t *testing.T) {
	var seen []int
	rep := newReporter(3, 0, func(p Progress) { seen = append(seen, p.Records) })

	for i := 1; i <= 10; i++ {
		rep.observe(i)
	}

	want := []int{3, 6, 9}
	if len(seen) != len(want) {
		t.Fatalf("emitted at %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("emission %d at count %d, want %d", i, seen[i], want[i])
		}
	}
}

func TestReporter_FinalTotal(t *testing.T) {
	var seen []Progress
	rep := newReporter(3, 10, func(p Progress) { seen = append(seen, p) })

	for i := 1; i <= 10; i++ {
		rep.observe(i)
	}

	// 3, 6, 9 on the modulus; 10 because it equals the known total.
	if len(seen) != 4 {
		t.Fatalf("got %d emissions, want 4", len(seen))
	}
	last := seen[len(seen)-1]
	if last.Records != 10 || last.Percent() != 100 {
		t.Errorf("final emission = %d records (%d%%), want 10 (100%%)", last.Records, last.Percent())
	}
}

func TestReporter_UnknownTotal(t *testing.T) {
	var seen []Progress
	rep := newReporter(5, 0, func(p Progress) { seen = append(seen, p) })

	for i := 1; i <= 7; i++ {
		rep.observe(i)
	}

	if len(seen) != 1 || seen[0].Records != 5 {
		t.Fatalf("emissions = %+v, want single emission at 5", seen)
	}
	if seen[0].Percent() != 0 {
		t.Errorf("unknown total must report 0%%, got %d%%", seen[0].Percent())
	}
}

func TestReporter_NilCallback(t *testing.T) {
	rep := newReporter(1, 10, nil)
	// Must be a no-op, not a panic.
	rep.observe(1)
	rep.observe(10)
}

func TestReporter_DefaultGranularity(t *testing.T) {
	count := 0
	rep := newReporter(0, 0, func(Progress) { count++ })

	for i := 1; i <= DefaultReportEvery*2; i++ {
		rep.observe(i)
	}
	if count != 2 {
		t.Errorf("emissions = %d, want 2 with default granularity", count)
	}
}
