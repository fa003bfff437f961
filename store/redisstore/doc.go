// Package redisstore implements store.Store on Redis.
//
// # Key layout
//
// All keys share a configurable prefix (default "ac"):
//   - <p>:acct:<id>            account hash
//   - <p>:email:<email>        account id by normalized email
//   - <p>:tok:<kind>:<acct>    live single-use token hash
//   - <p>:tokd:<kind>:<digest> account id by token digest
//   - <p>:sess:<id>            session hash
//   - <p>:sessd:<digest>       session id by token digest
//   - <p>:acctsess:<acct>      set of session ids
//   - <p>:rt:<session>         refresh token hash
//   - <p>:rtd:<digest>         session id by refresh digest
//   - <p>:rtlock:<session>     rotation lock (SET NX PX)
//
// Records carry no TTL; expiry is evaluated by the engine at lookup time.
// Account units of work use WATCH/MULTI and retry on redis.TxFailedErr.
package redisstore
