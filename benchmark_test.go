package txcache

import "testing"

// BenchmarkCommit adapts the teacher's BenchmarkSet (tempuscache,
// benchmark_test.go) to the transactional write path: every write here goes
// through Begin/Set/Commit rather than a bare Set.
func BenchmarkCommit(b *testing.B) {
	cache := New[int, int](WithLRUCapacity[int, int](10000))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		txn := cache.BeginTransaction()
		txn.Set(i, i)
		if err := txn.Commit(CommitOptions{}); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkGet(b *testing.B) {
	cache := New[int, int](WithLRUCapacity[int, int](10000))

	txn := cache.BeginTransaction()
	for i := 0; i < 10000; i++ {
		txn.Set(i, i)
	}
	if err := txn.Commit(CommitOptions{}); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		cache.Get(i % 10000)
	}
}

func BenchmarkBeginTransaction(b *testing.B) {
	cache := New[int, int](WithLRUCapacity[int, int](10000))

	txn := cache.BeginTransaction()
	for i := 0; i < 1000; i++ {
		txn.Set(i, i)
	}
	if err := txn.Commit(CommitOptions{}); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cache.BeginTransaction()
	}
}
