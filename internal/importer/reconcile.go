package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/hfujimori/materialmaster/internal/material"
)

// Mode is the caller-selected overwrite policy governing how an import
// reconciles rows against existing records.
type Mode string

const (
	// ModeUpdate overwrites the mapped fields of existing records and
	// creates records for new identifiers. The default.
	ModeUpdate Mode = "update"

	// ModeSkip leaves existing records untouched; only new identifiers
	// are created.
	ModeSkip Mode = "skip"

	// ModeReplace deletes and recreates existing records from scratch.
	// Fields absent from this import's mapping are lost.
	ModeReplace Mode = "replace"
)

// ParseMode validates a mode string, defaulting blanks to ModeUpdate.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeUpdate, nil
	case ModeUpdate, ModeSkip, ModeReplace:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown overwrite mode %q", s)
	}
}

// Outcome says what reconciliation did with one row.
type Outcome int

const (
	OutcomeCreated Outcome = iota
	OutcomeUpdated
	OutcomeSkipped
)

// Reconcile applies one canonical record to the store under the given
// mode. A record is touched by the import at most once per identifier;
// an identifier already present never gains a second record. Records the
// import touches are marked active; untouched records keep their flag
// (bulk reactivation is a separate administrative operation).
func Reconcile(ctx context.Context, store material.Store, rec *Record, mapping Mapping, mode Mode) (Outcome, error) {
	existing, err := store.Get(ctx, rec.MaterialID)
	if err != nil && !errors.Is(err, material.ErrNotFound) {
		return OutcomeSkipped, fmt.Errorf("lookup %s: %w", rec.MaterialID, err)
	}

	if existing == nil {
		if err := store.Insert(ctx, newMaterial(rec)); err != nil {
			return OutcomeSkipped, fmt.Errorf("insert %s: %w", rec.MaterialID, err)
		}
		return OutcomeCreated, nil
	}

	switch mode {
	case ModeSkip:
		return OutcomeSkipped, nil

	case ModeReplace:
		if err := store.Delete(ctx, rec.MaterialID); err != nil {
			return OutcomeSkipped, fmt.Errorf("delete %s: %w", rec.MaterialID, err)
		}
		if err := store.Insert(ctx, newMaterial(rec)); err != nil {
			return OutcomeSkipped, fmt.Errorf("recreate %s: %w", rec.MaterialID, err)
		}
		return OutcomeUpdated, nil

	default: // ModeUpdate
		updated := existing.Clone()
		applyMapped(updated, rec, mapping)
		updated.IsActive = true
		if err := store.Update(ctx, updated); err != nil {
			return OutcomeSkipped, fmt.Errorf("update %s: %w", rec.MaterialID, err)
		}
		return OutcomeUpdated, nil
	}
}

// newMaterial builds a fresh record from the canonical values. Imported
// records are always active.
func newMaterial(rec *Record) *material.Material {
	return &material.Material{
		MaterialID:       rec.MaterialID,
		MaterialName:     rec.MaterialName,
		Manufacturer:     rec.Manufacturer,
		Supplier:         rec.Supplier,
		Application:      rec.Application,
		UnitPrice:        rec.UnitPrice,
		OrderQuantity:    rec.OrderQuantity,
		Remarks:          rec.Remarks,
		MaterialCategory: rec.Category,
		IsActive:         true,
	}
}

// applyMapped overwrites only the fields the current mapping actually
// bound, so columns missing from the source leave existing values alone.
// The name is applied unconditionally: an unmapped name column still
// yields the synthesized placeholder, matching create behavior.
func applyMapped(dst *material.Material, rec *Record, mapping Mapping) {
	dst.MaterialName = rec.MaterialName
	if _, ok := mapping[FieldManufacturer]; ok {
		dst.Manufacturer = rec.Manufacturer
	}
	if _, ok := mapping[FieldSupplier]; ok {
		dst.Supplier = rec.Supplier
	}
	if _, ok := mapping[FieldApplication]; ok {
		dst.Application = rec.Application
	}
	if _, ok := mapping[FieldUnitPrice]; ok {
		dst.UnitPrice = rec.UnitPrice
	}
	if _, ok := mapping[FieldOrderQuantity]; ok {
		dst.OrderQuantity = rec.OrderQuantity
	}
	if _, ok := mapping[FieldRemarks]; ok || rec.Remarks != "" {
		dst.Remarks = rec.Remarks
	}
	if _, ok := mapping[FieldCategory]; ok {
		dst.MaterialCategory = rec.Category
	}
}
