package salesflow

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/fieldsales/crm-cli/internal/localstore"
)

// DraftStore reads and writes per-visit drafts in a key-value store
type DraftStore struct {
	store localstore.Store
}

func NewDraftStore(store localstore.Store) *DraftStore {
	return &DraftStore{store: store}
}

func draftKey(visitID int64, field string) string {
	return fmt.Sprintf("sales_%d_%s", visitID, field)
}

func productsKey(visitID int64) string {
	return fmt.Sprintf("visit_products_%d", visitID)
}

// Load returns the stored draft; missing keys leave zero values
func (d *DraftStore) Load(visitID int64) (Draft, error) {
	draft := Draft{Prices: map[int64]string{}}

	if v, ok, err := d.store.Get(draftKey(visitID, "stage")); err != nil {
		return draft, err
	} else if ok {
		if st, valid := ParseStage(v); valid {
			draft.Stage = st
		}
	}

	if v, ok, err := d.store.Get(draftKey(visitID, "isFinal")); err != nil {
		return draft, err
	} else if ok {
		draft.IsFinal, _ = strconv.ParseBool(v)
	}

	if v, ok, err := d.store.Get(draftKey(visitID, "status")); err != nil {
		return draft, err
	} else if ok {
		if st, perr := ParseStatus(v); perr == nil {
			draft.Status = st
		}
	}

	if v, ok, err := d.store.Get(draftKey(visitID, "reason")); err != nil {
		return draft, err
	} else if ok {
		draft.Reason = v
	}

	if v, ok, err := d.store.Get(draftKey(visitID, "prices")); err != nil {
		return draft, err
	} else if ok && v != "" {
		raw := map[string]string{}
		if err := json.Unmarshal([]byte(v), &raw); err != nil {
			return draft, fmt.Errorf("corrupt draft prices for visit %d: %w", visitID, err)
		}
		for k, price := range raw {
			id, err := strconv.ParseInt(k, 10, 64)
			if err != nil {
				continue
			}
			draft.Prices[id] = price
		}
	}

	return draft, nil
}

// Save overwrites every draft key for the visit
func (d *DraftStore) Save(visitID int64, draft Draft) error {
	prices := make(map[string]string, len(draft.Prices))
	for id, price := range draft.Prices {
		prices[strconv.FormatInt(id, 10)] = price
	}
	encoded, err := json.Marshal(prices)
	if err != nil {
		return err
	}

	err = d.store.SetMany(map[string]string{
		draftKey(visitID, "stage"):   string(draft.Stage),
		draftKey(visitID, "isFinal"): strconv.FormatBool(draft.IsFinal),
		draftKey(visitID, "status"):  string(draft.Status),
		draftKey(visitID, "reason"):  draft.Reason,
		draftKey(visitID, "prices"):  string(encoded),
	})
	if err != nil {
		return fmt.Errorf("failed to save draft for visit %d: %w", visitID, err)
	}
	return nil
}

var draftFields = []string{"stage", "isFinal", "status", "reason", "prices"}

// Visits lists the visit ids that have a stored draft, in ascending order
func (d *DraftStore) Visits() ([]int64, error) {
	keys, err := d.store.Keys("sales_")
	if err != nil {
		return nil, err
	}
	seen := map[int64]bool{}
	var ids []int64
	for _, key := range keys {
		rest := strings.TrimPrefix(key, "sales_")
		idx := strings.IndexByte(rest, '_')
		if idx <= 0 {
			continue
		}
		id, err := strconv.ParseInt(rest[:idx], 10, 64)
		if err != nil || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Discard removes the draft and product cache of a visit
func (d *DraftStore) Discard(visitID int64) error {
	for _, field := range draftFields {
		if err := d.store.Delete(draftKey(visitID, field)); err != nil {
			return fmt.Errorf("failed to discard draft for visit %d: %w", visitID, err)
		}
	}
	return d.store.Delete(productsKey(visitID))
}

// SaveProducts caches the product list of a visit
func (d *DraftStore) SaveProducts(visitID int64, products []ProductRef) error {
	encoded, err := json.Marshal(products)
	if err != nil {
		return err
	}
	return d.store.Set(productsKey(visitID), string(encoded))
}

// LoadProducts returns the cached product list, or nil
func (d *DraftStore) LoadProducts(visitID int64) ([]ProductRef, error) {
	v, ok, err := d.store.Get(productsKey(visitID))
	if err != nil || !ok || v == "" {
		return nil, err
	}
	var products []ProductRef
	if err := json.Unmarshal([]byte(v), &products); err != nil {
		return nil, fmt.Errorf("corrupt product cache for visit %d: %w", visitID, err)
	}
	return products, nil
}
