package redisstore

import "github.com/redis/go-redis/v9"

// KEYS[1] session hash, KEYS[2] refresh hash
// ARGV[1] key prefix, ARGV[2] session id
const deleteSessionScript = `
local account_id = redis.call("HGET", KEYS[1], "account_id")
local digest = redis.call("HGET", KEYS[1], "digest")
local refresh_digest = redis.call("HGET", KEYS[2], "digest")
if digest then
  redis.call("DEL", ARGV[1] .. ":sessd:" .. digest)
end
if refresh_digest then
  redis.call("DEL", ARGV[1] .. ":rtd:" .. refresh_digest)
end
if account_id then
  redis.call("SREM", ARGV[1] .. ":acctsess:" .. account_id, ARGV[2])
end
redis.call("DEL", KEYS[2])
return redis.call("DEL", KEYS[1])
`

var deleteSessionLua = redis.NewScript(deleteSessionScript)

// KEYS[1] lock key, ARGV[1] owner
const releaseLockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

var releaseLockLua = redis.NewScript(releaseLockScript)
