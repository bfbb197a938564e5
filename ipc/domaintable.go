package ipc

import (
	"math"

	"github.com/nestybox/horizon-ipc/result"
)

// DomainTable owns the id allocation and object bindings for one session
// that has been converted into a domain: a set of in-use ids plus the
// holders those ids resolve to.
type DomainTable struct {
	ids     []DomainObjectID
	domains []*ServerHolder
}

// NewDomainTable returns an empty table.
func NewDomainTable() *DomainTable {
	return &DomainTable{}
}

func (t *DomainTable) contains(id DomainObjectID) bool {
	for _, existing := range t.ids {
		if existing == id {
			return true
		}
	}
	return false
}

// AllocateID hands out the lowest unused domain object id starting at 1
// (0 is reserved to mean "not a domain object"). Bounded at MaxInt32 per
// the decision to make the allocation loop's worst case explicit rather
// than spin forever on an exhausted table (spec open question (b)).
func (t *DomainTable) AllocateID() (DomainObjectID, error) {
	for id := DomainObjectID(1); id <= math.MaxInt32; id++ {
		if !t.contains(id) {
			t.ids = append(t.ids, id)
			return id, nil
		}
	}
	return 0, result.ErrDomainTableFull
}

// AllocateSpecificID reserves exactly id, failing if it is already taken
// (used when a MITM domain must mirror the forwarded session's own id
// allocation).
func (t *DomainTable) AllocateSpecificID(id DomainObjectID) (DomainObjectID, error) {
	if t.contains(id) {
		return 0, result.ErrObjectIdAlreadyAllocated
	}
	t.ids = append(t.ids, id)
	return id, nil
}

// FindDomain resolves a domain object id to its bound session object.
func (t *DomainTable) FindDomain(id DomainObjectID) (SessionObject, error) {
	for _, holder := range t.domains {
		if holder.Info.DomainObjectID == id {
			if holder.Server == nil {
				return nil, result.ErrDomainNotFound
			}
			return holder.Server, nil
		}
	}
	return nil, result.ErrDomainNotFound
}

// DeallocateDomain frees id and drops its bound holder.
func (t *DomainTable) DeallocateDomain(id DomainObjectID) {
	ids := t.ids[:0]
	for _, existing := range t.ids {
		if existing != id {
			ids = append(ids, existing)
		}
	}
	t.ids = ids

	domains := t.domains[:0]
	for _, holder := range t.domains {
		if holder.Info.DomainObjectID != id {
			domains = append(domains, holder)
		}
	}
	t.domains = domains
}
