package ops

import (
	"context"

	"github.com/hpungsan/stopka/internal/contact"
	"github.com/hpungsan/stopka/internal/render"
	"github.com/hpungsan/stopka/internal/snapshot"
)

// InspectOutput shows how a record will be rendered.
type InspectOutput struct {
	Record   contact.Record  `json:"record"`
	Derived  contact.Derived `json:"derived"`
	Template string          `json:"template"`
	FileName string          `json:"file_name"`
	Sentinel bool            `json:"sentinel"`
}

func inspect(r contact.Record) *InspectOutput {
	d := contact.Derive(r)
	return &InspectOutput{
		Record:   r,
		Derived:  d,
		Template: string(render.Select(d.UsesPhoto)),
		FileName: render.OutputFileName(d),
		Sentinel: r.IsSentinel(),
	}
}

// Inspect parses a note body without touching the store or the network.
func Inspect(notes string) *InspectOutput {
	return inspect(contact.Parse("", "", "", notes))
}

// Show reads one snapshot and reports its derived fields.
func Show(ctx context.Context, store snapshot.Store, key string) (*InspectOutput, error) {
	r, err := store.Read(ctx, key)
	if err != nil {
		return nil, err
	}
	return inspect(r), nil
}

// ListOutput contains the stored snapshot keys.
type ListOutput struct {
	Keys  []string `json:"keys"`
	Count int      `json:"count"`
}

// List returns every snapshot key in the store.
func List(ctx context.Context, store snapshot.Store) (*ListOutput, error) {
	keys, err := store.List(ctx)
	if err != nil {
		return nil, err
	}
	if keys == nil {
		keys = []string{}
	}
	return &ListOutput{Keys: keys, Count: len(keys)}, nil
}
