package scene

import (
	"encoding/json"
	"fmt"
)

// FormatVersion is written into every overlay document.
const FormatVersion = "1"

type overlayDocument struct {
	Version string    `json:"version"`
	Objects []*Object `json:"objects"`
}

// Metadata is the per-object role record kept next to overlay JSON.
type Metadata struct {
	Role     Role `json:"role"`
	Editable bool `json:"isEditable"`
}

// Snapshot is one immutable history entry: the overlay document plus one
// metadata record per serialized object, keyed by overlay index.
type Snapshot struct {
	OverlayJSON string           `json:"overlayJSON"`
	Metadata    map[int]Metadata `json:"metadata"`
}

// Session is a persisted editor state: a snapshot plus the background URL.
type Session struct {
	BackgroundURL string `json:"backgroundUrl"`
	Snapshot
}

// SerializeOverlays encodes every non-transient overlay in paint order. The
// background is never part of the document.
func SerializeOverlays(s *Scene) (string, error) {
	doc := overlayDocument{Version: FormatVersion, Objects: persistent(s.objects)}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode overlays: %w", err)
	}
	return string(b), nil
}

// DeserializeOverlays decodes an overlay document into fresh objects.
func DeserializeOverlays(data string) ([]*Object, error) {
	var doc overlayDocument
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("decode overlays: %w", err)
	}
	for i, o := range doc.Objects {
		if o == nil {
			return nil, fmt.Errorf("decode overlays: object %d is null", i)
		}
		if err := o.Validate(); err != nil {
			return nil, fmt.Errorf("decode overlays: object %d: %w", i, err)
		}
	}
	return doc.Objects, nil
}

// TakeSnapshot serializes the overlays of s together with their metadata.
func TakeSnapshot(s *Scene) (Snapshot, error) {
	return SnapshotOf(s.objects)
}

// SnapshotOf serializes objs, skipping transient ones, together with their
// metadata.
func SnapshotOf(objs []*Object) (Snapshot, error) {
	objs = persistent(objs)
	b, err := json.Marshal(overlayDocument{Version: FormatVersion, Objects: objs})
	if err != nil {
		return Snapshot{}, fmt.Errorf("encode overlays: %w", err)
	}
	meta := make(map[int]Metadata, len(objs))
	for i, o := range objs {
		meta[i] = Metadata{Role: o.Role, Editable: o.Editable}
	}
	return Snapshot{OverlayJSON: string(b), Metadata: meta}, nil
}

// Rescaled returns the snapshot with every object's position and scale
// multiplied by ratio, as Scene.Resize does for live objects.
func (snap Snapshot) Rescaled(ratio float64) (Snapshot, error) {
	objs, err := snap.Objects()
	if err != nil {
		return Snapshot{}, err
	}
	for _, o := range objs {
		o.Left *= ratio
		o.Top *= ratio
		o.ScaleUniform(ratio)
	}
	return SnapshotOf(objs)
}

// Objects decodes the snapshot and applies its metadata by overlay index.
// A snapshot whose metadata does not cover exactly its objects is rejected.
func (snap Snapshot) Objects() ([]*Object, error) {
	objs, err := DeserializeOverlays(snap.OverlayJSON)
	if err != nil {
		return nil, err
	}
	if len(snap.Metadata) != len(objs) {
		return nil, fmt.Errorf("snapshot has %d objects but %d metadata entries", len(objs), len(snap.Metadata))
	}
	for i, o := range objs {
		m, ok := snap.Metadata[i]
		if !ok {
			return nil, fmt.Errorf("snapshot metadata missing index %d", i)
		}
		if !m.Role.Valid() {
			return nil, fmt.Errorf("snapshot metadata %d: invalid role %q", i, m.Role)
		}
		o.Role = m.Role
		o.Editable = m.Editable
	}
	return objs, nil
}

// MarshalMetadata encodes a metadata map for storage.
func MarshalMetadata(m map[int]Metadata) (string, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	return string(b), nil
}

// UnmarshalMetadata decodes a stored metadata map. An empty string yields an
// empty map.
func UnmarshalMetadata(data string) (map[int]Metadata, error) {
	m := make(map[int]Metadata)
	if data == "" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return m, nil
}

func persistent(objs []*Object) []*Object {
	out := make([]*Object, 0, len(objs))
	for _, o := range objs {
		if !o.Transient {
			out = append(out, o)
		}
	}
	return out
}
