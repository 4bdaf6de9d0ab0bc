package models

import (
	"encoding/json"
	"fmt"
)

// RemoteRecord is one dataset payload from the remote search response. It is
// kept as a map so unknown fields round-trip untouched to the local upsert;
// the accessors below cover the only fields the pipeline inspects or rewrites.
type RemoteRecord map[string]interface{}

// DecodeRemoteRecord parses a serialized record payload.
func DecodeRemoteRecord(content []byte) (RemoteRecord, error) {
	var record RemoteRecord
	if err := json.Unmarshal(content, &record); err != nil {
		return nil, fmt.Errorf("failed to decode record payload: %w", err)
	}
	return record, nil
}

// Encode serializes the record for storage or upsert.
func (r RemoteRecord) Encode() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return data, nil
}

func (r RemoteRecord) stringField(key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

// ID returns the stable remote identifier.
func (r RemoteRecord) ID() string { return r.stringField("id") }

// Name returns the remote dataset name.
func (r RemoteRecord) Name() string { return r.stringField("name") }

// Type returns the remote dataset type ("dataset", "harvest", ...).
func (r RemoteRecord) Type() string { return r.stringField("type") }

// SetType overrides the dataset type.
func (r RemoteRecord) SetType(t string) { r["type"] = t }

// OwnerOrg returns the declared remote owner organization id, if any.
func (r RemoteRecord) OwnerOrg() string { return r.stringField("owner_org") }

// SetOwnerOrg assigns the local owner organization id.
func (r RemoteRecord) SetOwnerOrg(id string) { r["owner_org"] = id }

// Groups returns the record's group references. Entries that are not
// id/name maps are ignored.
func (r RemoteRecord) Groups() []GroupRef {
	raw, ok := r["groups"].([]interface{})
	if !ok {
		return nil
	}
	refs := make([]GroupRef, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		ref := GroupRef{}
		if id, ok := m["id"].(string); ok {
			ref.ID = id
		}
		if name, ok := m["name"].(string); ok {
			ref.Name = name
		}
		refs = append(refs, ref)
	}
	return refs
}

// SetGroups replaces the record's group list with resolved references.
func (r RemoteRecord) SetGroups(refs []GroupRef) {
	groups := make([]interface{}, len(refs))
	for i, ref := range refs {
		groups[i] = map[string]interface{}{"id": ref.ID, "name": ref.Name}
	}
	r["groups"] = groups
}

// StripGroups removes any group associations from the record.
func (r RemoteRecord) StripGroups() { delete(r, "groups") }

// TagNames returns the names of the record's tags.
func (r RemoteRecord) TagNames() []string {
	raw, ok := r["tags"].([]interface{})
	if !ok {
		return nil
	}
	names := make([]string, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]interface{}); ok {
			if name, ok := m["name"].(string); ok {
				names = append(names, name)
			}
		}
	}
	return names
}

// AddTag appends a tag to the record.
func (r RemoteRecord) AddTag(tag Tag) {
	raw, _ := r["tags"].([]interface{})
	entry := map[string]interface{}{"name": tag.Name}
	if tag.Vocabulary != "" {
		entry["vocabulary_id"] = tag.Vocabulary
	}
	r["tags"] = append(raw, entry)
}

// Extra is a dataset key/value extra.
type Extra struct {
	Key   string
	Value interface{}
}

// Extras returns the record's extras in declaration order.
func (r RemoteRecord) Extras() []Extra {
	raw, ok := r["extras"].([]interface{})
	if !ok {
		return nil
	}
	extras := make([]Extra, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		key, _ := m["key"].(string)
		extras = append(extras, Extra{Key: key, Value: m["value"]})
	}
	return extras
}

// SetExtras replaces the record's extras list.
func (r RemoteRecord) SetExtras(extras []Extra) {
	raw := make([]interface{}, len(extras))
	for i, e := range extras {
		raw[i] = map[string]interface{}{"key": e.Key, "value": e.Value}
	}
	r["extras"] = raw
}

// SanitizeResources removes the remote storage-type marker and revision
// identifier from every resource. Both reference remote-only state; keeping
// them would point the local record at storage that does not exist here.
func (r RemoteRecord) SanitizeResources() {
	raw, ok := r["resources"].([]interface{})
	if !ok {
		return
	}
	for _, item := range raw {
		if m, ok := item.(map[string]interface{}); ok {
			delete(m, "url_type")
			delete(m, "revision_id")
		}
	}
}
