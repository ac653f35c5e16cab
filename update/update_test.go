package update_test

import (
	"errors"
	"testing"

	"github.com/rsaacc/accumulator/accumulator"
	"github.com/rsaacc/accumulator/elementmap"
	"github.com/rsaacc/accumulator/internal/fixtures"
	"github.com/rsaacc/accumulator/update"
)

// Scenario 3: refresh via Update.
func TestUpdateRefreshAfterAdd(t *testing.T) {
	a := fixtures.NewHolder()
	w1, err := a.Add([]byte("1"))
	if err != nil {
		t.Fatal(err)
	}
	snapBeforeW2 := a.Snapshot()
	w2, err := a.Add([]byte("2"))
	if err != nil {
		t.Fatal(err)
	}

	u := update.Open(snapBeforeW2)
	u.AbsorbAdd(w2)

	w1Refreshed, err := u.Apply(w1)
	if err != nil {
		t.Fatal(err)
	}
	if !a.Verify(w1Refreshed) {
		t.Fatal("expected refreshed w1 to verify after the batch that added \"2\"")
	}
}

// Scenario 4: delete invalidates, and an Update carrying the deletion
// refreshes the remaining witness.
func TestUpdateRefreshAfterDelete(t *testing.T) {
	a := fixtures.NewHolder()
	w1, err := a.Add([]byte("1"))
	if err != nil {
		t.Fatal(err)
	}
	snapBeforeW2 := a.Snapshot()
	w2, err := a.Add([]byte("2"))
	if err != nil {
		t.Fatal(err)
	}

	u := update.Open(snapBeforeW2)
	u.AbsorbAdd(w2)
	w1Refreshed, err := u.Apply(w1)
	if err != nil {
		t.Fatal(err)
	}

	snapBeforeDel := a.Snapshot()
	if _, err := a.Del(w1Refreshed); err != nil {
		t.Fatal(err)
	}
	if a.Verify(w1Refreshed) {
		t.Fatal("expected w1' to fail verification after deletion")
	}

	uDel := update.Open(snapBeforeDel)
	uDel.AbsorbDel(w1Refreshed)
	w2Refreshed, err := uDel.Apply(w2)
	if err != nil {
		t.Fatal(err)
	}
	if !a.Verify(w2Refreshed) {
		t.Fatal("expected w2 refreshed through the deletion batch to verify")
	}
}

// Scenario 5: re-add after delete; the old witness for the deleted element
// must not revalidate once the element is added back.
func TestReAddAfterDeleteViaUpdate(t *testing.T) {
	a := fixtures.NewHolder()
	w1, err := a.Add([]byte("1"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.Add([]byte("2")); err != nil {
		t.Fatal(err)
	}

	// w1 is stale after the second Add; Del needs a witness that verifies
	// against the current accumulation.
	w1Current, err := a.Prove([]byte("1"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.Del(w1Current); err != nil {
		t.Fatal(err)
	}
	snapAfterDel := a.Snapshot()

	w1New, err := a.Add([]byte("1"))
	if err != nil {
		t.Fatal(err)
	}
	if !a.Verify(w1New) {
		t.Fatal("expected the fresh re-add witness to verify")
	}

	uDel := update.Open(snapAfterDel)
	uDel.AbsorbDel(w1)
	// Applying the deletion batch to the stale, pre-deletion witness for "1"
	// itself is meaningless (its own element was deleted); what must never
	// happen is the *old* witness re-validating.
	if a.Verify(w1) {
		t.Fatal("expected the old, pre-deletion witness for \"1\" to remain invalid")
	}
}

func TestUndoAddReversesAbsorb(t *testing.T) {
	a := fixtures.NewHolder()
	snap := a.Snapshot()
	w2, err := a.Add([]byte("2"))
	if err != nil {
		t.Fatal(err)
	}

	u := update.Open(snap)
	u.AbsorbAdd(w2)
	if err := u.UndoAdd(w2); err != nil {
		t.Fatal(err)
	}
}

func TestUndoAddRejectsUnabsorbedPrime(t *testing.T) {
	a := fixtures.NewHolder()
	snap := a.Snapshot()
	w2, err := a.Add([]byte("2"))
	if err != nil {
		t.Fatal(err)
	}

	u := update.Open(snap)
	err = u.UndoAdd(w2)
	var accErr *accumulator.Error
	if !errors.As(err, &accErr) || accErr.Kind != accumulator.InvalidDivision {
		t.Fatalf("UndoAdd(never absorbed) = %v, want InvalidDivision", err)
	}
}

func TestRefreshAfterSingleAdd(t *testing.T) {
	a := fixtures.NewHolder()
	w1, err := a.Add([]byte("1"))
	if err != nil {
		t.Fatal(err)
	}
	w2, err := a.Add([]byte("2"))
	if err != nil {
		t.Fatal(err)
	}

	addedPrime := elementmap.Recover(a.Digest(), w2.X, a.PrimeBits(), w2.Nonce)
	w1Refreshed := update.RefreshAfterSingleAdd(w1, addedPrime, a.N())
	if !a.Verify(w1Refreshed) {
		t.Fatal("expected single-step refreshed witness to verify")
	}
}
