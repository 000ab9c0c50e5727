package stage

import "testing"

func TestWindow_Counts(t *testing.T) {
	const n = 7
	for skip := 0; skip <= n+2; skip++ {
		for first := 0; first <= n+2; first++ {
			pulled := 0
			out, err := collect(t, Window(countingStream(n, &pulled), skip, intPtr(first)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			want := max(0, min(first, n-skip))
			if len(out) != want {
				t.Fatalf("skip=%d first=%d: got %d records, want %d", skip, first, len(out), want)
			}
			for i, rec := range out {
				if rec.(int64) != int64(skip+i) {
					t.Fatalf("skip=%d first=%d: record %d is %v", skip, first, i, rec)
				}
			}
		}
	}
}

func TestWindow_OpenEnded(t *testing.T) {
	pulled := 0
	out, err := collect(t, Window(countingStream(5, &pulled), 2, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 3 || pulled != 5 {
		t.Fatalf("got %d records after %d pulls", len(out), pulled)
	}
}

func TestWindow_StopsPullingWhenFull(t *testing.T) {
	pulled := 0
	out, err := collect(t, Window(countingStream(1_000_000, &pulled), 3, intPtr(2)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 || pulled != 5 {
		t.Fatalf("got %d records after %d pulls, want 2 after 5", len(out), pulled)
	}

	pulled = 0
	if _, err := collect(t, Window(countingStream(10, &pulled), 0, intPtr(0))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pulled != 0 {
		t.Fatalf("first=0 pulled %d records", pulled)
	}
}
