package concept

// Record is the flattened, serializable form of a resolved concept, used to
// cache a build and to compare two builds.
type Record struct {
	Key    string            `json:"key"`
	Type   string            `json:"type"`
	Values map[string]string `json:"values"`
}

// NewRecord flattens an instance under the given key.
func NewRecord(key string, inst *Instance) Record {
	rec := Record{
		Key:    key,
		Type:   inst.Type.Name,
		Values: make(map[string]string),
	}
	for idx, m := range inst.Members() {
		v := inst.ValueAt(idx)
		if v.Set {
			rec.Values[m.Name] = v.Text(m)
		}
	}
	return rec
}

// Equal reports whether two records have the same type and values.
func (r Record) Equal(o Record) bool {
	if r.Key != o.Key || r.Type != o.Type || len(r.Values) != len(o.Values) {
		return false
	}
	for k, v := range r.Values {
		if ov, ok := o.Values[k]; !ok || ov != v {
			return false
		}
	}
	return true
}
