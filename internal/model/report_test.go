package model

import (
	"errors"
	"testing"
)

func TestBuildReport_Add(t *testing.T) {
	r := NewBuildReport("run")

	ok := NewDocumentStats(1)
	ok.RawRelations = 4
	ok.Matches[MatchExactLocal] = 2
	ok.Reject(RejectLowConfidence)
	ok.Reject(RejectUnmatchedTarget)
	ok.Inserted = 1
	ok.Reinforced = 1
	ok.Errors = []string{"save relation: disk full"}
	r.Add(1, ok, nil)

	skipped := NewDocumentStats(2)
	skipped.Skipped = true
	r.Add(2, skipped, nil)

	r.Add(3, nil, errors.New("boom"))

	if r.DocumentsProcessed != 1 || r.DocumentsSkipped != 1 || r.DocumentsFailed != 1 {
		t.Errorf("unexpected document counts: %+v", r)
	}
	if r.Accepted() != 2 {
		t.Errorf("expected 2 accepted, got %d", r.Accepted())
	}
	if r.Rejected() != 2 {
		t.Errorf("expected 2 rejected, got %d", r.Rejected())
	}
	if len(r.Errors) != 2 {
		t.Errorf("expected edge and document errors, got %+v", r.Errors)
	}
}

func TestRelationKey_String(t *testing.T) {
	k := RelationKey{SourceID: 1, Predicate: "Triggers", TargetID: 2}
	if k.String() != "1|triggers|2" {
		t.Errorf("unexpected key: %s", k.String())
	}
}
