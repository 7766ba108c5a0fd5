// Package kv stores the whole rental dataset as one JSON document, either in
// process memory or under a single Redis key.
package kv

import (
	"encoding/json"
	"fmt"

	"github.com/segyhp/movie-rental/internal/domain"
)

// Dataset is the serialized document
type Dataset struct {
	Movies   []domain.Movie       `json:"movies"`
	Users    []domain.User        `json:"users"`
	Rentals  []domain.Rental      `json:"rentals"`
	LateFees []domain.LateFeeRule `json:"lateFees"`
}

// Clone copies the record slices. Records hold only values and pointers that are
// replaced, never written through, so a slice copy is enough.
func (d *Dataset) Clone() *Dataset {
	return &Dataset{
		Movies:   append([]domain.Movie(nil), d.Movies...),
		Users:    append([]domain.User(nil), d.Users...),
		Rentals:  append([]domain.Rental(nil), d.Rentals...),
		LateFees: append([]domain.LateFeeRule(nil), d.LateFees...),
	}
}

// Validate checks the records and that they agree with each other: every
// active rental points at a stored movie and user, and the copy and rental
// counters match the active rentals. Returned rentals are history and may
// outlive the movie or user they name.
func (d *Dataset) Validate() error {
	if err := d.ValidateRecords(); err != nil {
		return err
	}
	return d.validateConsistency()
}

// ValidateRecords checks every record on its own, the uniqueness of IDs and
// that no two late fee rules cover the same day.
func (d *Dataset) ValidateRecords() error {
	seen := make(map[int64]bool)
	for i := range d.Movies {
		if err := d.Movies[i].Validate(); err != nil {
			return err
		}
		if seen[d.Movies[i].ID] {
			return fmt.Errorf("duplicate movie id %d", d.Movies[i].ID)
		}
		seen[d.Movies[i].ID] = true
	}

	clear(seen)
	for i := range d.Users {
		if err := d.Users[i].Validate(); err != nil {
			return err
		}
		if seen[d.Users[i].ID] {
			return fmt.Errorf("duplicate user id %d", d.Users[i].ID)
		}
		seen[d.Users[i].ID] = true
	}

	clear(seen)
	for i := range d.Rentals {
		if err := d.Rentals[i].Validate(); err != nil {
			return err
		}
		if seen[d.Rentals[i].ID] {
			return fmt.Errorf("duplicate rental id %d", d.Rentals[i].ID)
		}
		seen[d.Rentals[i].ID] = true
	}

	clear(seen)
	for i := range d.LateFees {
		rule := &d.LateFees[i]
		if err := rule.Validate(); err != nil {
			return err
		}
		if seen[rule.ID] {
			return fmt.Errorf("duplicate late fee rule id %d", rule.ID)
		}
		seen[rule.ID] = true
		for j := range i {
			if rule.Overlaps(&d.LateFees[j]) {
				return fmt.Errorf("late fee rules %d and %d overlap", d.LateFees[j].ID, rule.ID)
			}
		}
	}
	return nil
}

func (d *Dataset) validateConsistency() error {
	rentedOut := make(map[int64]int, len(d.Movies))
	holding := make(map[int64]int, len(d.Users))
	for i := range d.Rentals {
		r := &d.Rentals[i]
		if !r.IsActive() {
			continue
		}
		if d.movieIndex(r.MovieID) < 0 {
			return fmt.Errorf("rental %d: unknown movie %d", r.ID, r.MovieID)
		}
		if d.userIndex(r.UserID) < 0 {
			return fmt.Errorf("rental %d: unknown user %d", r.ID, r.UserID)
		}
		rentedOut[r.MovieID]++
		holding[r.UserID]++
	}

	for i := range d.Movies {
		m := &d.Movies[i]
		if m.RentedOut() != rentedOut[m.ID] {
			return fmt.Errorf("movie %d: %d copies rented out but %d active rentals", m.ID, m.RentedOut(), rentedOut[m.ID])
		}
	}
	for i := range d.Users {
		u := &d.Users[i]
		if u.ActiveRentals != holding[u.ID] {
			return fmt.Errorf("user %d: %d active rentals recorded but %d found", u.ID, u.ActiveRentals, holding[u.ID])
		}
	}
	return nil
}

// Decode parses a document and checks its records. Cross-record consistency is
// left to Validate. Empty input is an empty dataset.
func Decode(raw []byte) (*Dataset, error) {
	ds := &Dataset{}
	if len(raw) == 0 {
		return ds, nil
	}
	if err := json.Unmarshal(raw, ds); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	if err := ds.ValidateRecords(); err != nil {
		return nil, fmt.Errorf("invalid dataset: %w", err)
	}
	return ds, nil
}

func Encode(ds *Dataset) ([]byte, error) {
	return json.Marshal(ds)
}

func (d *Dataset) movieIndex(id int64) int {
	for i := range d.Movies {
		if d.Movies[i].ID == id {
			return i
		}
	}
	return -1
}

func (d *Dataset) userIndex(id int64) int {
	for i := range d.Users {
		if d.Users[i].ID == id {
			return i
		}
	}
	return -1
}

func (d *Dataset) rentalIndex(id int64) int {
	for i := range d.Rentals {
		if d.Rentals[i].ID == id {
			return i
		}
	}
	return -1
}

func (d *Dataset) lateFeeIndex(id int64) int {
	for i := range d.LateFees {
		if d.LateFees[i].ID == id {
			return i
		}
	}
	return -1
}
