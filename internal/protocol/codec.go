package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/elektrokombinacija/swarmcore/internal/geomtype"
)

const positionScale = 10000.0

func encodePosition(buf *bytes.Buffer, p geomtype.Position) {
	var ints [4]int32
	ints[0] = int32(math.Round(p.X * positionScale))
	ints[1] = int32(math.Round(p.Y * positionScale))
	ints[2] = int32(math.Round(p.Z * positionScale))
	ints[3] = int32(math.Round(p.Yaw * positionScale))
	for _, v := range ints {
		binary.Write(buf, binary.BigEndian, v)
	}
}

func decodePosition(r *bytes.Reader) (geomtype.Position, error) {
	var ints [4]int32
	for i := range ints {
		if err := binary.Read(r, binary.BigEndian, &ints[i]); err != nil {
			return geomtype.Position{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}
	return geomtype.Position{
		X:   float64(ints[0]) / positionScale,
		Y:   float64(ints[1]) / positionScale,
		Z:   float64(ints[2]) / positionScale,
		Yaw: float64(ints[3]) / positionScale,
	}, nil
}

func sortedKeys(m map[uint16]geomtype.Position) []uint16 {
	keys := make([]uint16, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Serialize renders msg as {1-byte type ID}{payload}, ready to be framed by
// a caller (e.g. behind a length prefix on the wire).
func Serialize(msg any) ([]byte, error) {
	var buf bytes.Buffer

	switch m := msg.(type) {
	case RegisterNotificationReq:
		buf.WriteByte(byte(RegisterNotificationRequest))
		binary.Write(&buf, binary.BigEndian, m.IntervalMS)

	case RegisterNotificationResp:
		buf.WriteByte(byte(RegisterNotificationResponse))

	case StateNotification:
		buf.WriteByte(byte(StateNotificationMsg))
		writePositionMap(&buf, m.Positions)
		writePositionMap(&buf, m.Targets)
		writeStateMap(&buf, m.States)
		writeOpMap(&buf, m.Ops)
		buf.WriteByte(byte(m.SwarmState))

	case SetTargetsRequest:
		buf.WriteByte(byte(SetTargetsRequestMsg))
		writePositionMap(&buf, m.Targets)

	case SetTargetsResponse:
		buf.WriteByte(byte(SetTargetsResponseMsg))

	case SwarmOperationRequest:
		buf.WriteByte(byte(SwarmOperationRequestMsg))
		buf.WriteByte(byte(m.Op))

	case SwarmOperationResponse:
		buf.WriteByte(byte(SwarmOperationResponseMsg))

	case DroneOperationsRequest:
		buf.WriteByte(byte(DroneOperationsRequestMsg))
		writeOpMap(&buf, m.Ops)

	case DroneOperationsResponse:
		buf.WriteByte(byte(DroneOperationsResponseMsg))

	default:
		return nil, fmt.Errorf("protocol: unknown message type %T", msg)
	}

	return buf.Bytes(), nil
}

func writePositionMap(buf *bytes.Buffer, m map[uint16]geomtype.Position) {
	keys := sortedKeys(m)
	buf.WriteByte(byte(len(keys)))
	for _, id := range keys {
		binary.Write(buf, binary.BigEndian, id)
		encodePosition(buf, m[id])
	}
}

func writeStateMap(buf *bytes.Buffer, m map[uint16]DroneState) {
	keys := make([]uint16, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	buf.WriteByte(byte(len(keys)))
	for _, id := range keys {
		binary.Write(buf, binary.BigEndian, id)
		buf.WriteByte(byte(m[id]))
	}
}

func writeOpMap(buf *bytes.Buffer, m map[uint16]DroneOp) {
	keys := make([]uint16, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	buf.WriteByte(byte(len(keys)))
	for _, id := range keys {
		binary.Write(buf, binary.BigEndian, id)
		buf.WriteByte(byte(m[id]))
	}
}

// Parse decodes a single message from its {1-byte type ID}{payload} wire
// form, returning the concrete message value (not a pointer) matching one
// of the types defined in messages.go.
func Parse(data []byte) (any, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("%w: empty message", ErrMalformed)
	}
	r := bytes.NewReader(data[1:])
	id := MessageID(data[0])

	switch id {
	case RegisterNotificationRequest:
		var interval uint16
		if err := binary.Read(r, binary.BigEndian, &interval); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return RegisterNotificationReq{IntervalMS: interval}, nil

	case RegisterNotificationResponse:
		return RegisterNotificationResp{}, nil

	case StateNotificationMsg:
		positions, err := readPositionMap(r)
		if err != nil {
			return nil, err
		}
		targets, err := readPositionMap(r)
		if err != nil {
			return nil, err
		}
		states, err := readStateMap(r)
		if err != nil {
			return nil, err
		}
		ops, err := readOpMap(r)
		if err != nil {
			return nil, err
		}
		swarmState, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return StateNotification{
			Positions:  positions,
			Targets:    targets,
			States:     states,
			Ops:        ops,
			SwarmState: SwarmState(swarmState),
		}, nil

	case SetTargetsRequestMsg:
		targets, err := readPositionMap(r)
		if err != nil {
			return nil, err
		}
		return SetTargetsRequest{Targets: targets}, nil

	case SetTargetsResponseMsg:
		return SetTargetsResponse{}, nil

	case SwarmOperationRequestMsg:
		op, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return SwarmOperationRequest{Op: SwarmOp(op)}, nil

	case SwarmOperationResponseMsg:
		return SwarmOperationResponse{}, nil

	case DroneOperationsRequestMsg:
		ops, err := readOpMap(r)
		if err != nil {
			return nil, err
		}
		return DroneOperationsRequest{Ops: ops}, nil

	case DroneOperationsResponseMsg:
		return DroneOperationsResponse{}, nil

	default:
		return nil, fmt.Errorf("%w: unrecognized type ID %d", ErrMalformed, id)
	}
}

func readPositionMap(r *bytes.Reader) (map[uint16]geomtype.Position, error) {
	n, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	out := make(map[uint16]geomtype.Position, n)
	for i := 0; i < int(n); i++ {
		var id uint16
		if err := binary.Read(r, binary.BigEndian, &id); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		p, err := decodePosition(r)
		if err != nil {
			return nil, err
		}
		out[id] = p
	}
	return out, nil
}

func readStateMap(r *bytes.Reader) (map[uint16]DroneState, error) {
	n, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	out := make(map[uint16]DroneState, n)
	for i := 0; i < int(n); i++ {
		var id uint16
		if err := binary.Read(r, binary.BigEndian, &id); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		s, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		out[id] = DroneState(s)
	}
	return out, nil
}

func readOpMap(r *bytes.Reader) (map[uint16]DroneOp, error) {
	n, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	out := make(map[uint16]DroneOp, n)
	for i := 0; i < int(n); i++ {
		var id uint16
		if err := binary.Read(r, binary.BigEndian, &id); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		op, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		out[id] = DroneOp(op)
	}
	return out, nil
}
