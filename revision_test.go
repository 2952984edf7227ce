package txcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRevisionLogAppendAndIterOrder(t *testing.T) {
	log := newRevisionLog[string, int]()

	log.append("a", EntityRevision[int]{Entity: 1, Revision: 1})
	log.append("a", EntityRevision[int]{Entity: 2, Revision: 2})

	revs := log.iter("a")
	assert.Equal(t, []EntityRevision[int]{
		{Entity: 1, Revision: 1},
		{Entity: 2, Revision: 2},
	}, revs)
}

func TestRevisionLogIterReturnsDefensiveCopy(t *testing.T) {
	log := newRevisionLog[string, int]()
	log.append("a", EntityRevision[int]{Entity: 1, Revision: 1})

	revs := log.iter("a")
	revs[0].Entity = 999

	again := log.iter("a")
	assert.Equal(t, 1, again[0].Entity)
}

func TestRevisionLogAppendManyAndLastRevision(t *testing.T) {
	log := newRevisionLog[string, int]()

	assert.Equal(t, uint64(0), log.lastRevision("a"))

	log.appendMany("a", []EntityRevision[int]{
		{Entity: 1, Revision: 1},
		{Entity: 2, Revision: 2},
	})

	assert.Equal(t, uint64(2), log.lastRevision("a"))
}

func TestRevisionLogClearAndClearAll(t *testing.T) {
	log := newRevisionLog[string, int]()
	log.append("a", EntityRevision[int]{Entity: 1, Revision: 1})
	log.append("b", EntityRevision[int]{Entity: 2, Revision: 1})

	log.clear("a")
	assert.Nil(t, log.iter("a"))
	assert.NotNil(t, log.iter("b"))

	log.clearAll()
	assert.Nil(t, log.iter("b"))
}
