package plan

import "context"

// Store persists the plan catalogue for relational joins and API listing.
type Store interface {
	Upsert(ctx context.Context, p *Plan) error
	Get(ctx context.Context, key Key) (*Plan, error)
	List(ctx context.Context) ([]*Plan, error)
}

// Seed upserts the hardcoded catalogue into a store.
func Seed(ctx context.Context, s Store) error {
	for _, k := range Keys() {
		p := Catalog[k]
		if err := s.Upsert(ctx, &p); err != nil {
			return err
		}
	}
	return nil
}
