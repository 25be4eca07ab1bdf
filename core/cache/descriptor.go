package cache

// Descriptor identifies what a cache entry holds for a given kind:
// the full listing (optionally including soft-deleted records for audit
// views) or a single record by id.
type Descriptor struct {
	List           bool
	ID             string
	IncludeDeleted bool
}

func ListDescriptor(includeDeleted ...bool) Descriptor {
	d := Descriptor{List: true}
	if len(includeDeleted) > 0 {
		d.IncludeDeleted = includeDeleted[0]
	}
	return d
}

func DetailDescriptor(id string) Descriptor {
	return Descriptor{ID: id}
}

func (d Descriptor) Key() string {
	if d.List {
		if d.IncludeDeleted {
			return "list+deleted"
		}
		return "list"
	}
	return "detail/" + d.ID
}
