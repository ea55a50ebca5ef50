// Package secure provides memory-safe handling of secret values while
// they are in flight between a secret store and the masking scope or a
// child process environment.
//
// It wraps memguard: values are encrypted at rest in memory
// (XSalsa20Poly1305), mlocked against swapping where the platform
// allows it, bracketed by guard pages, and wiped on destruction.
//
//	buf, err := secure.NewSecureBufferFromString(value)
//	if err != nil { ... }
//	defer buf.Destroy()
//
//	locked, err := buf.Open()
//	if err != nil { ... }
//	defer locked.Destroy()
//	use(locked.Bytes())
//
// If mlock is unavailable (RLIMIT_MEMLOCK on Linux) memguard degrades
// to standard allocation. None of this defends against an attacker
// with root on the running host; it keeps plaintext out of core dumps
// and swap.
package secure
