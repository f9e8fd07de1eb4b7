// Package store defines the aggregate persistence interface.
//
// Each subsystem (queue, status, ledger, dlq) defines its own store
// interface. The composite [Store] composes them all. A single backend
// need only implement Store to satisfy every subsystem's persistence
// contract.
//
// # Available Backends
//
//   - store/memory: in-memory store for development and testing
//   - store/redis: Redis backend (lists, hashes, counters)
//
// # Usage
//
//	import redisstore "github.com/arpit-jain-mygit/doc-transcribe-worker/store/redis"
//
//	opts, err := redis.ParseURL(os.Getenv("REDIS_URL"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	s := redisstore.New(redis.NewClient(opts))
//
//	w, err := transcribe.New(transcribe.WithStore(s))
package store
