// Package password implements peppered Argon2id hashing and the password
// strength policy.
//
// # Output format
//
// Digests are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// The password is combined with the configured pepper as "<password>-<pepper>"
// before hashing. [Hasher.NeedsUpgrade] reports digests produced with weaker
// parameters so the caller can rehash after the next successful sign in.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive digests.
//   - Import any other authcore package.
//   - Log plaintext passwords or the pepper.
package password
