package ipc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nestybox/horizon-ipc/result"
)

func TestDomainTableAllocateID(t *testing.T) {
	table := NewDomainTable()

	id1, err := table.AllocateID()
	require.NoError(t, err)
	assert.Equal(t, DomainObjectID(1), id1)

	id2, err := table.AllocateID()
	require.NoError(t, err)
	assert.Equal(t, DomainObjectID(2), id2)

	table.DeallocateDomain(id1)

	id3, err := table.AllocateID()
	require.NoError(t, err)
	assert.Equal(t, DomainObjectID(1), id3, "freed ids are reused at the lowest available value")
}

func TestDomainTableAllocateSpecificID(t *testing.T) {
	table := NewDomainTable()

	_, err := table.AllocateSpecificID(5)
	require.NoError(t, err)

	_, err = table.AllocateSpecificID(5)
	assert.ErrorIs(t, err, result.ErrObjectIdAlreadyAllocated)
}

func TestDomainTableFindAndDeallocate(t *testing.T) {
	table := NewDomainTable()
	id, err := table.AllocateID()
	require.NoError(t, err)

	obj := &fakeSessionObject{}
	table.domains = append(table.domains, NewDomainSessionHolder(0, id, obj))

	found, err := table.FindDomain(id)
	require.NoError(t, err)
	assert.Same(t, obj, found)

	table.DeallocateDomain(id)
	_, err = table.FindDomain(id)
	assert.Error(t, err)

	_, err = table.AllocateID()
	require.NoError(t, err)
}

type fakeSessionObject struct{}

func (f *fakeSessionObject) CommandMetadataTable() []CommandMetadata { return nil }
