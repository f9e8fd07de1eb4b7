// Package redis implements store.Store on Redis, the production backend.
// Queues and dead-letter queues are plain lists (producers LPUSH, the
// worker BRPOPs, so delivery is FIFO), status records are hashes under
// job_status:{job_id} with a TTL, and attempt counters are strings under
// job_attempts:{job_id} driven by INCR.
//
// The caller owns the client lifecycle; Close never closes it:
//
//	opts, err := goredis.ParseURL(os.Getenv("REDIS_URL"))
//	client := goredis.NewClient(opts)
//	defer client.Close()
//
//	s := redis.New(client)
//	if err := s.Ping(ctx); err != nil { ... }
package redis
