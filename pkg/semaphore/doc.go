// Package semaphore provides anonymous group signaling backed by a STARK
// constraint system.
//
// A group of members is committed as an AccessSet: a Merkle tree of public
// keys hashed with the Rescue-Prime permutation. Any member can emit a Signal
// on a topic; the signal proves membership without revealing which member
// signed, and carries a nullifier that makes a second signal by the same
// member on the same topic detectable.
//
// # Quick Start
//
// Building an access set and signaling:
//
//	pub, err := semaphore.DerivePubKey(priv)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	set, err := semaphore.NewAccessSet([]*semaphore.PubKey{pub}, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sig, err := set.MakeSignal(priv, "proposal-42")
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Verifying and recording the nullifier:
//
//	if err := set.VerifySignal("proposal-42", sig); err != nil {
//		log.Fatal(err)
//	}
//
//	registry := semaphore.NewNullifierRegistry()
//	if err := registry.Record(sig.Topic, sig.Nullifier); err != nil {
//		// second signal on the same topic
//	}
//
// # Architecture
//
// The module uses a hybrid public/private layout:
//
// - pkg/semaphore/: Public API (this package)
// - internal/semaphore/: Private implementation (not importable)
//
// Internally, internal/semaphore/core holds the field, the Rescue-Prime
// permutation and the Merkle access set; internal/semaphore/air holds the
// trace layout and the constraint system; internal/semaphore/prover builds
// traces and proofs.
//
// # Soundness
//
// The constraint system pins every sponge capacity register to its domain
// constant, draws all constraint indices from one allocator so no two checks
// can alias, and binds the nullifier's permutation input to the same trace
// cells that hold the private key whose hash is proved to be in the set.
// Verification failures are deliberately opaque: the verifier never reports
// which check rejected a signal.
package semaphore
