package air

import "testing"

func TestNewLeg_BucketsOrderedByClass(t *testing.T) {
	leg := NewLeg(101, "AL1", "BOS", "SFO", 100, []string{"Y", "B", "M", "Q"})
	if len(leg.Buckets) != 4 {
		t.Fatalf("got %d buckets, want 4", len(leg.Buckets))
	}
	if leg.BucketIndex("Y") != 0 || leg.BucketIndex("Q") != 3 {
		t.Errorf("bucket ordering wrong: Y=%d Q=%d", leg.BucketIndex("Y"), leg.BucketIndex("Q"))
	}
	if leg.BucketIndex("Z") != -1 {
		t.Errorf("unknown class should index -1, got %d", leg.BucketIndex("Z"))
	}
	for _, b := range leg.Buckets {
		if b.Auth != 100 {
			t.Errorf("bucket %s auth = %d, want full capacity", b.Name, b.Auth)
		}
	}
}

func TestLeg_PrepareSampleResetsCounters(t *testing.T) {
	leg := NewLeg(101, "AL1", "BOS", "SFO", 100, []string{"Y", "Q"})
	leg.Sold = 40
	leg.Revenue = 5000
	leg.BidPrice = 75
	leg.Buckets[0].Sold = 10
	leg.Buckets[1].Auth = 0

	leg.PrepareSample(5)
	if leg.Sold != 0 || leg.Revenue != 0 || leg.BidPrice != 0 {
		t.Errorf("leg counters not reset: %+v", leg)
	}
	if leg.Remaining() != 100 {
		t.Errorf("Remaining = %d, want 100", leg.Remaining())
	}
	for _, b := range leg.Buckets {
		if b.Sold != 0 || b.Auth != 100 || len(b.SoldByDCP) != 5 {
			t.Errorf("bucket %s not reset: %+v", b.Name, b)
		}
	}
}

func TestLeg_CaptureDCPSnapshotsAndMarksClosed(t *testing.T) {
	leg := NewLeg(101, "AL1", "BOS", "SFO", 10, []string{"Y", "Q"})
	leg.PrepareSample(3)

	leg.Sold = 4
	leg.Buckets[0].Sold = 3
	leg.Buckets[1].Sold = 1
	leg.Buckets[1].Auth = 0
	leg.CaptureDCP(0)

	leg.Sold = 7
	leg.Buckets[0].Sold = 6
	leg.CaptureDCP(1)

	if leg.SoldByDCP[0] != 4 || leg.SoldByDCP[1] != 7 {
		t.Errorf("leg snapshots = %v", leg.SoldByDCP)
	}
	if leg.Buckets[0].SoldByDCP[1] != 6 {
		t.Errorf("bucket snapshot = %v", leg.Buckets[0].SoldByDCP)
	}
	if !leg.Buckets[1].ClosedInTF[0] || leg.Buckets[0].ClosedInTF[0] {
		t.Errorf("closed flags wrong: %v / %v", leg.Buckets[1].ClosedInTF, leg.Buckets[0].ClosedInTF)
	}
}
