package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/arpit-jain-mygit/doc-transcribe-worker/status"
)

// applyStatusScript checks the current status against the ignore and
// block sets and applies the fields in one step.
//
// KEYS[1] status hash
// ARGV[1] ttl in milliseconds (0 keeps the current TTL)
// ARGV[2] "|"-joined statuses for which the write is ignored
// ARGV[3] "|"-joined statuses for which the write is blocked
// ARGV[4..] field, value pairs
//
// Returns {verdict, current} where verdict is 0 apply, 1 ignore, 2 block.
var applyStatusScript = goredis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'status')
if not cur then cur = '' end
cur = string.upper((string.gsub(cur, '^%s*(.-)%s*$', '%1')))

local function member(list, v)
  if v == '' or list == '' then return false end
  return string.find('|' .. list .. '|', '|' .. v .. '|', 1, true) ~= nil
end

if member(ARGV[2], cur) then return {1, cur} end
if member(ARGV[3], cur) then return {2, cur} end

if #ARGV > 3 then
  redis.call('HSET', KEYS[1], unpack(ARGV, 4))
end
local ttl = tonumber(ARGV[1])
if ttl and ttl > 0 then
  redis.call('PEXPIRE', KEYS[1], ttl)
end
return {0, cur}
`)

// ApplyStatus checks p against the record's current status and writes it
// atomically.
func (s *Store) ApplyStatus(ctx context.Context, jobID string, p status.Patch, ttl time.Duration) (status.Status, error) {
	ignore, block := status.Plan(p.Status)
	fields := p.Fields()

	args := make([]any, 0, 3+2*len(fields))
	args = append(args, ttl.Milliseconds(), joinStatuses(ignore), joinStatuses(block))
	for k, v := range fields {
		args = append(args, k, v)
	}

	res, err := applyStatusScript.Run(ctx, s.client, []string{statusKey(jobID)}, args...).Slice()
	if err != nil {
		return status.None, fmt.Errorf("docworker/redis: apply status %s: %w", jobID, err)
	}
	if len(res) != 2 {
		return status.None, fmt.Errorf("docworker/redis: apply status %s: unexpected reply", jobID)
	}
	verdict, _ := res[0].(int64)
	cur, _ := res[1].(string)
	current := status.Normalize(cur)

	switch status.Verdict(verdict) {
	case status.Block:
		return current, status.ErrTransitionBlocked
	default:
		return current, nil
	}
}

// GetStatus reads the record of jobID.
func (s *Store) GetStatus(ctx context.Context, jobID string) (*status.Record, error) {
	vals, err := s.client.HGetAll(ctx, statusKey(jobID)).Result()
	if err != nil {
		return nil, fmt.Errorf("docworker/redis: get status %s: %w", jobID, err)
	}
	if len(vals) == 0 {
		return nil, status.ErrNotFound
	}
	return status.Decode(jobID, vals), nil
}

func joinStatuses(ss []status.Status) string {
	parts := make([]string, len(ss))
	for i, st := range ss {
		parts[i] = string(st)
	}
	return strings.Join(parts, "|")
}
