package prover

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/sha3"

	"github.com/sabrinahirani/semaphore-stark/internal/semaphore/air"
)

// ErrVerificationFailed reports a rejected proof. Like the constraint
// checker, it is deliberately opaque: the verifier never reveals which check
// rejected the signal.
var ErrVerificationFailed = errors.New("signal proof rejected")

// Backend turns a satisfying trace into a proof artifact and checks such
// artifacts against the constraint system. Production deployments plug in a
// STARK backend (trace commitment, composition polynomial, FRI); the
// constraint contract it consumes is the air.Air descriptor set.
type Backend interface {
	Prove(system *air.Air, trace *air.TraceTable, pub *air.PublicInputs) ([]byte, error)
	Verify(system *air.Air, pub *air.PublicInputs, proof []byte) error
}

// TraceBackend is the reference backend: the proof artifact is the whole
// serialized trace plus an integrity digest, and verification re-evaluates
// every constraint over it. It is neither succinct nor zero-knowledge and
// exists to exercise the exact prover/verifier contract end to end.
type TraceBackend struct{}

// NewTraceBackend creates the reference backend
func NewTraceBackend() *TraceBackend {
	return &TraceBackend{}
}

var traceEnvelopeMagic = [4]byte{'S', 'A', 'I', 'R'}

const traceEnvelopeVersion = 1

// Prove serializes the trace after re-checking it against the constraint
// system; an unsatisfying trace must never leave the prover.
func (b *TraceBackend) Prove(system *air.Air, trace *air.TraceTable, pub *air.PublicInputs) ([]byte, error) {
	if err := system.CheckTrace(trace, pub); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConstraintViolation, err)
	}

	var payload bytes.Buffer
	payload.Write(traceEnvelopeMagic[:])
	payload.WriteByte(traceEnvelopeVersion)

	header := make([]byte, 6)
	binary.LittleEndian.PutUint16(header[0:2], uint16(trace.Width()))
	binary.LittleEndian.PutUint32(header[2:6], uint32(trace.Length()))
	payload.Write(header)

	for row := 0; row < trace.Length(); row++ {
		for col := 0; col < trace.Width(); col++ {
			payload.Write(trace.Get(row, col).Bytes())
		}
	}

	digest := sha3.Sum256(payload.Bytes())
	payload.Write(digest[:])
	return payload.Bytes(), nil
}

// Verify deserializes the trace and re-evaluates the full constraint system
// against the given public inputs. Any malformation or violation rejects
// the proof; there is no partial acceptance.
func (b *TraceBackend) Verify(system *air.Air, pub *air.PublicInputs, proof []byte) error {
	field := system.Params().Field()
	elementSize := field.ElementSize()

	headerSize := len(traceEnvelopeMagic) + 1 + 6
	if len(proof) < headerSize+sha3.New256().Size() {
		return ErrVerificationFailed
	}
	if !bytes.Equal(proof[:4], traceEnvelopeMagic[:]) || proof[4] != traceEnvelopeVersion {
		return ErrVerificationFailed
	}

	width := int(binary.LittleEndian.Uint16(proof[5:7]))
	length := int(binary.LittleEndian.Uint32(proof[7:11]))
	if width != system.TraceWidth() || length != system.TraceLength() {
		return ErrVerificationFailed
	}

	cellBytes := width * length * elementSize
	if len(proof) != headerSize+cellBytes+32 {
		return ErrVerificationFailed
	}

	payload := proof[:headerSize+cellBytes]
	digest := sha3.Sum256(payload)
	if !bytes.Equal(digest[:], proof[headerSize+cellBytes:]) {
		return ErrVerificationFailed
	}

	trace, err := air.NewTraceTable(field, width, length)
	if err != nil {
		return ErrVerificationFailed
	}
	offset := headerSize
	for row := 0; row < length; row++ {
		for col := 0; col < width; col++ {
			trace.Set(row, col, field.NewElementFromBytes(proof[offset:offset+elementSize]))
			offset += elementSize
		}
	}

	if err := system.CheckTrace(trace, pub); err != nil {
		return ErrVerificationFailed
	}
	return nil
}
