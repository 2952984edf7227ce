// Command txcacheexample walks through the transactional API end to end:
// begin a transaction, set a value, commit, then commit a partial update
// from a second transaction that the default deep-merge folds into the
// current value, and read the result plus its revision history back from
// the cache.
//
// This replaces the teacher's (tempuscache) main.go demo, which exercised a
// bare non-transactional Set/Get/Stop lifecycle. That lifecycle no longer
// exists here: writes only ever land through a committed transaction, so
// the demo walks the commit path instead.
package main

import (
	"fmt"

	"github.com/krishna8167/txcache"
)

type user struct {
	Name string
	Age  int
}

func main() {
	cache := txcache.New[string, user](
		txcache.WithLRUCapacity[string, user](1000),
	)

	txn := cache.BeginTransaction()
	txn.Set("u:1", user{Name: "ada", Age: 30})
	if err := txn.Commit(txcache.CommitOptions{}); err != nil {
		panic(err)
	}

	// A second transaction only updates Age; the default deep-merge keeps
	// Name from whatever is current in the cache at commit time.
	txn2 := cache.BeginTransaction()
	txn2.Set("u:1", user{Age: 31})
	if err := txn2.Commit(txcache.CommitOptions{}); err != nil {
		panic(err)
	}

	value, ok := cache.Get("u:1")
	fmt.Printf("u:1 = %+v (found=%v)\n", value, ok)

	for _, rev := range cache.EntryRevisions("u:1") {
		fmt.Printf("revision %d: %+v\n", rev.Revision, rev.Entity)
	}

	fmt.Printf("stats: %+v\n", cache.Stats())
}
