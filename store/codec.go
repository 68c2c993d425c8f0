package store

import (
	"sort"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// Snapshot wire layout, protobuf-compatible:
//
//	message Snapshot { uint64 version = 1; repeated Entry entries = 2; }
//	message Entry    { bytes key = 1; bytes value = 2; }
const (
	snapshotVersion = 1

	fieldVersion protowire.Number = 1
	fieldEntry   protowire.Number = 2

	fieldKey   protowire.Number = 1
	fieldValue protowire.Number = 2
)

func encodeSnapshot(data map[string]string) []byte {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b []byte
	b = protowire.AppendTag(b, fieldVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, snapshotVersion)

	var entry []byte
	for _, k := range keys {
		entry = entry[:0]
		entry = protowire.AppendTag(entry, fieldKey, protowire.BytesType)
		entry = protowire.AppendString(entry, k)
		entry = protowire.AppendTag(entry, fieldValue, protowire.BytesType)
		entry = protowire.AppendString(entry, data[k])

		b = protowire.AppendTag(b, fieldEntry, protowire.BytesType)
		b = protowire.AppendBytes(b, entry)
	}
	return b
}

func decodeSnapshot(b []byte) (map[string]string, error) {
	data := map[string]string{}
	sawVersion := false

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, errors.Wrap(protowire.ParseError(n), "snapshot tag")
		}
		b = b[n:]

		switch {
		case num == fieldVersion && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, errors.Wrap(protowire.ParseError(n), "snapshot version")
			}
			if v != snapshotVersion {
				return nil, errors.Errorf("unsupported snapshot version %d", v)
			}
			sawVersion = true
			b = b[n:]
		case num == fieldEntry && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, errors.Wrap(protowire.ParseError(n), "snapshot entry")
			}
			k, val, err := decodeEntry(v)
			if err != nil {
				return nil, err
			}
			data[k] = val
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, errors.Wrapf(protowire.ParseError(n), "snapshot field %d", num)
			}
			b = b[n:]
		}
	}

	if !sawVersion {
		return nil, errors.New("snapshot has no version")
	}
	return data, nil
}

func decodeEntry(b []byte) (key, value string, err error) {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return "", "", errors.Wrap(protowire.ParseError(n), "entry tag")
		}
		b = b[n:]

		if typ != protowire.BytesType || (num != fieldKey && num != fieldValue) {
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return "", "", errors.Wrapf(protowire.ParseError(n), "entry field %d", num)
			}
			b = b[n:]
			continue
		}

		v, n := protowire.ConsumeString(b)
		if n < 0 {
			return "", "", errors.Wrapf(protowire.ParseError(n), "entry field %d", num)
		}
		if num == fieldKey {
			key = v
		} else {
			value = v
		}
		b = b[n:]
	}
	return key, value, nil
}
