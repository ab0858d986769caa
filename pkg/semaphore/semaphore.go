package semaphore

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/sabrinahirani/semaphore-stark/internal/semaphore/air"
	"github.com/sabrinahirani/semaphore-stark/internal/semaphore/core"
	"github.com/sabrinahirani/semaphore-stark/internal/semaphore/prover"
	"github.com/sabrinahirani/semaphore-stark/internal/semaphore/utils"
)

// AccessSet is the public entry point of the protocol: a committed group of
// members that can produce and verify anonymous signals.
type AccessSet struct {
	config  *utils.Config
	field   *core.Field
	params  *core.RescueParams
	set     *core.AccessSet
	keys    []*PubKey
	sprover *prover.SemaphoreProver
	backend prover.Backend
}

// NewAccessSet builds an access set over the given public keys. A nil config
// selects the protocol defaults.
func NewAccessSet(keys []*PubKey, config *Config) (*AccessSet, error) {
	if config == nil {
		config = utils.DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, newError(ErrInvalidConfig, "invalid configuration", err)
	}

	field, err := core.NewField(config.FieldModulus)
	if err != nil {
		return nil, newError(ErrFieldCreation, "failed to create field", err)
	}
	params, err := core.NewRescueParams(field, config.StateWidth, config.CapacityWidth, config.Rounds)
	if err != nil {
		return nil, newError(ErrInvalidConfig, "failed to instantiate permutation", err)
	}

	if len(keys) == 0 {
		return nil, newError(ErrInvalidConfig, "access set needs at least one member", nil)
	}
	digests := make([][]*core.FieldElement, len(keys))
	for i, key := range keys {
		digest, err := digestFromBytes(field, key.raw, params.DigestSize())
		if err != nil {
			return nil, newError(ErrInvalidKey, "malformed public key", err)
		}
		digests[i] = digest
	}

	set, err := core.NewAccessSet(params, digests, config.TreeDepth)
	if err != nil {
		return nil, newError(ErrInvalidConfig, "failed to build member tree", err)
	}
	sprover, err := prover.NewSemaphoreProver(params, config.TreeDepth)
	if err != nil {
		return nil, newError(ErrInvalidConfig, "failed to build prover", err)
	}

	return &AccessSet{
		config:  config,
		field:   field,
		params:  params,
		set:     set,
		keys:    keys,
		sprover: sprover,
		backend: prover.NewTraceBackend(),
	}, nil
}

// WithBackend replaces the proof backend; the default is the non-succinct
// reference backend.
func (s *AccessSet) WithBackend(backend Backend) *AccessSet {
	s.backend = backend
	return s
}

// WithLogger attaches a logger for prover instrumentation
func (s *AccessSet) WithLogger(log zerolog.Logger) *AccessSet {
	s.sprover = s.sprover.WithLogger(log)
	return s
}

// Root returns the hex-encoded Merkle root committing to the member set
func (s *AccessSet) Root() string {
	return digestToHex(s.set.Root())
}

// Size returns the number of registered members
func (s *AccessSet) Size() int {
	return s.set.Size()
}

// Depth returns the member tree depth
func (s *AccessSet) Depth() int {
	return s.set.Depth()
}

// MakeSignal produces an anonymous signal on the given topic from a member's
// private key: a STARK-provable trace attesting that the key's public
// derivation is in the set, and the nullifier that makes a second signal on
// the same topic detectable.
func (s *AccessSet) MakeSignal(priv *PrivKey, topic string) (*Signal, error) {
	if priv == nil {
		return nil, newError(ErrInvalidKey, "private key is required", nil)
	}
	if topic == "" {
		return nil, newError(ErrInvalidInput, "topic must not be empty", nil)
	}

	privElements, err := digestFromBytes(s.field, priv.raw, s.params.DigestSize())
	if err != nil {
		return nil, newError(ErrInvalidKey, "malformed private key", err)
	}
	pubDigest, err := s.params.HashElements(privElements)
	if err != nil {
		return nil, newError(ErrInvalidKey, "failed to derive public key", err)
	}

	index := s.memberIndex(digestToHex(pubDigest))
	if index < 0 {
		return nil, newError(ErrNotMember, "public key is not in the access set", nil)
	}
	path, err := s.set.PathFor(index)
	if err != nil {
		return nil, newError(ErrInvalidIndex, "failed to build membership path", err)
	}

	topicHash, err := s.params.HashBytes([]byte(topic))
	if err != nil {
		return nil, newError(ErrInvalidInput, "failed to hash topic", err)
	}

	trace, pub, err := s.sprover.BuildTrace(privElements, path, topicHash)
	if err != nil {
		switch {
		case errors.Is(err, prover.ErrWitnessLengthMismatch):
			return nil, newError(ErrWitnessLength, "witness rejected", err)
		case errors.Is(err, prover.ErrIndexOutOfRange):
			return nil, newError(ErrInvalidIndex, "witness rejected", err)
		case errors.Is(err, prover.ErrConstraintViolation):
			return nil, newError(ErrConstraintViolation, "trace failed self-check", err)
		default:
			return nil, newError(ErrUnknown, "trace construction failed", err)
		}
	}

	proof, err := s.backend.Prove(s.sprover.Air(), trace, pub)
	if err != nil {
		return nil, newError(ErrProofGeneration, "failed to generate proof", err)
	}

	return &Signal{
		Topic:     topic,
		Nullifier: digestToHex(pub.Nullifier),
		Root:      digestToHex(pub.Root),
		Proof:     proof,
	}, nil
}

// VerifySignal checks a signal against the access set and the given topic.
// Rejection is terminal and deliberately unexplained. Replay protection is a
// separate concern: record accepted nullifiers in a NullifierRegistry.
func (s *AccessSet) VerifySignal(topic string, sig *Signal) error {
	if sig == nil || sig.Topic != topic {
		return newError(ErrVerificationFailure, "signal rejected", nil)
	}
	if sig.Root != s.Root() {
		return newError(ErrVerificationFailure, "signal rejected", nil)
	}

	topicHash, err := s.params.HashBytes([]byte(topic))
	if err != nil {
		return newError(ErrVerificationFailure, "signal rejected", nil)
	}
	nullifier, err := digestFromHex(s.field, sig.Nullifier, s.params.DigestSize())
	if err != nil {
		return newError(ErrVerificationFailure, "signal rejected", nil)
	}

	pub := &air.PublicInputs{
		Root:      s.set.Root(),
		TopicHash: topicHash,
		Nullifier: nullifier,
	}
	if err := s.backend.Verify(s.sprover.Air(), pub, sig.Proof); err != nil {
		return newError(ErrVerificationFailure, "signal rejected", nil)
	}
	return nil
}

func (s *AccessSet) memberIndex(pubHex string) int {
	for i, key := range s.keys {
		if key.Hex() == pubHex {
			return i
		}
	}
	return -1
}

// NullifierRegistry records accepted (topic, nullifier) pairs so that a
// member signaling twice on the same topic is rejected on the second
// attempt, regardless of proof validity. Safe for concurrent use.
type NullifierRegistry struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewNullifierRegistry creates an empty registry
func NewNullifierRegistry() *NullifierRegistry {
	return &NullifierRegistry{seen: make(map[string]struct{})}
}

// Record stores a nullifier for a topic, rejecting replays
func (r *NullifierRegistry) Record(topic, nullifier string) error {
	key := topic + "\x00" + nullifier
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.seen[key]; ok {
		return newError(ErrReplayRejection, "nullifier already seen for this topic", nil)
	}
	r.seen[key] = struct{}{}
	return nil
}

// Seen reports whether a nullifier was already recorded for a topic
func (r *NullifierRegistry) Seen(topic, nullifier string) bool {
	key := topic + "\x00" + nullifier
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.seen[key]
	return ok
}

var (
	defaultParamsOnce sync.Once
	defaultParams     *core.RescueParams
	defaultParamsErr  error
)

func defaultRescueParams() (*core.RescueParams, error) {
	defaultParamsOnce.Do(func() {
		defaultParams, defaultParamsErr = core.DefaultRescueParams()
	})
	return defaultParams, defaultParamsErr
}

// DerivePubKey computes the public key for a private key under the default
// protocol parameters.
func DerivePubKey(priv *PrivKey) (*PubKey, error) {
	if priv == nil {
		return nil, newError(ErrInvalidKey, "private key is required", nil)
	}
	params, err := defaultRescueParams()
	if err != nil {
		return nil, newError(ErrFieldCreation, "failed to instantiate permutation", err)
	}
	elements, err := digestFromBytes(params.Field(), priv.raw, params.DigestSize())
	if err != nil {
		return nil, newError(ErrInvalidKey, "malformed private key", err)
	}
	digest, err := params.HashElements(elements)
	if err != nil {
		return nil, newError(ErrInvalidKey, "failed to derive public key", err)
	}
	return &PubKey{raw: digestToBytes(digest)}, nil
}
