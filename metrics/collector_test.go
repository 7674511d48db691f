package metrics

import (
	"sync"
	"testing"
)

func TestCollector_IncrementMethods(t *testing.T) {
	c := NewCollector("remote:", "sess-001")

	c.IncUploadStarted()
	c.IncDownloadStarted()
	c.IncDownloadStarted()
	c.RecordCompletion(false, 100)
	c.RecordCompletion(false, 20)
	c.RecordCompletion(true, 999)
	c.IncProgressEvents()
	c.IncProgressEvents()
	c.IncLogDecodeErrors()
	c.IncRcloneErrorLines()
	c.IncRcloneErrorLines()
	c.IncRcloneLaunchFailure()

	s := c.Snapshot()

	if s.UploadsStarted != 1 {
		t.Errorf("UploadsStarted = %d, want 1", s.UploadsStarted)
	}
	if s.DownloadsStarted != 2 {
		t.Errorf("DownloadsStarted = %d, want 2", s.DownloadsStarted)
	}
	if s.Actions() != 3 {
		t.Errorf("Actions() = %d, want 3", s.Actions())
	}
	if s.ActionsSucceeded != 2 {
		t.Errorf("ActionsSucceeded = %d, want 2", s.ActionsSucceeded)
	}
	if s.ActionsFailed != 1 {
		t.Errorf("ActionsFailed = %d, want 1", s.ActionsFailed)
	}
	if s.BytesTransferred != 120 {
		t.Errorf("BytesTransferred = %d, want 120 (failed actions excluded)", s.BytesTransferred)
	}
	if s.ProgressEvents != 2 {
		t.Errorf("ProgressEvents = %d, want 2", s.ProgressEvents)
	}
	if s.LogDecodeErrors != 1 {
		t.Errorf("LogDecodeErrors = %d, want 1", s.LogDecodeErrors)
	}
	if s.RcloneErrorLines != 2 {
		t.Errorf("RcloneErrorLines = %d, want 2", s.RcloneErrorLines)
	}
	if s.RcloneLaunchFails != 1 {
		t.Errorf("RcloneLaunchFails = %d, want 1", s.RcloneLaunchFails)
	}
}

func TestCollector_Dimensions(t *testing.T) {
	c := NewCollector("remote:bucket", "sess-42")
	s := c.Snapshot()

	if s.Remote != "remote:bucket" {
		t.Errorf("Remote = %q, want %q", s.Remote, "remote:bucket")
	}
	if s.SessionID != "sess-42" {
		t.Errorf("SessionID = %q, want %q", s.SessionID, "sess-42")
	}
	if s.Fields()["actions"] != s.Actions() {
		t.Errorf("Fields()[actions] = %v, want %d", s.Fields()["actions"], s.Actions())
	}
	if s.Fields()["remote"] != "remote:bucket" {
		t.Errorf("Fields()[remote] = %v, want remote:bucket", s.Fields()["remote"])
	}
}

func TestCollector_SnapshotImmutability(t *testing.T) {
	c := NewCollector("remote:", "sess-001")
	c.IncUploadStarted()

	s1 := c.Snapshot()

	c.IncUploadStarted()
	c.RecordCompletion(false, 5)

	if s1.UploadsStarted != 1 {
		t.Errorf("s1.UploadsStarted = %d, want 1 (snapshot should be frozen)", s1.UploadsStarted)
	}
	if s1.BytesTransferred != 0 {
		t.Errorf("s1.BytesTransferred = %d, want 0 (snapshot should be frozen)", s1.BytesTransferred)
	}

	s2 := c.Snapshot()
	if s2.UploadsStarted != 2 {
		t.Errorf("s2.UploadsStarted = %d, want 2", s2.UploadsStarted)
	}
	if s2.BytesTransferred != 5 {
		t.Errorf("s2.BytesTransferred = %d, want 5", s2.BytesTransferred)
	}
}

func TestCollector_NilReceiverSafety(t *testing.T) {
	var c *Collector

	// None of these should panic
	c.IncUploadStarted()
	c.IncDownloadStarted()
	c.RecordCompletion(true, 1)
	c.IncProgressEvents()
	c.IncLogDecodeErrors()
	c.IncRcloneErrorLines()
	c.IncRcloneLaunchFailure()

	s := c.Snapshot()
	if s.Actions() != 0 {
		t.Errorf("nil collector snapshot Actions() = %d, want 0", s.Actions())
	}
}

func TestCollector_ConcurrentAccess(t *testing.T) {
	c := NewCollector("remote:", "sess-001")
	const goroutines = 10
	const iterations = 1000

	var wg sync.WaitGroup
	wg.Add(goroutines)

	for range goroutines {
		go func() {
			defer wg.Done()
			for range iterations {
				c.IncDownloadStarted()
				c.IncProgressEvents()
				c.RecordCompletion(false, 1)
			}
		}()
	}

	wg.Wait()

	s := c.Snapshot()
	want := int64(goroutines * iterations)

	if s.DownloadsStarted != want {
		t.Errorf("DownloadsStarted = %d, want %d", s.DownloadsStarted, want)
	}
	if s.ProgressEvents != want {
		t.Errorf("ProgressEvents = %d, want %d", s.ProgressEvents, want)
	}
	if s.BytesTransferred != want {
		t.Errorf("BytesTransferred = %d, want %d", s.BytesTransferred, want)
	}
}
