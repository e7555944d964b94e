package logicalplan

// Scheme is the partitioning scheme attached to every logical node's
// PartitionSpec; it drives repartition elision (DropRepartition) and
// shuffle instruction selection (FanoutHash/FanoutRange/FanoutRandom).
type Scheme int

const (
	SchemeUnknown Scheme = iota
	SchemeHash
	SchemeRange
	SchemeRandom
	SchemeReplicate
)

func (s Scheme) String() string {
	switch s {
	case SchemeHash:
		return "HASH"
	case SchemeRange:
		return "RANGE"
	case SchemeRandom:
		return "RANDOM"
	case SchemeReplicate:
		return "REPLICATE"
	default:
		return "UNKNOWN"
	}
}

// PartitionSpec describes how a logical node's output rows are
// distributed across its output partitions.
type PartitionSpec struct {
	Scheme        Scheme
	Keys          []ColID
	Descending    []bool // only meaningful for SchemeRange, one flag per key
	NumPartitions int
}

// UnknownSpec returns a spec for data whose distribution is not tracked
// (the conservative default for externally sourced scans).
func UnknownSpec(numPartitions int) PartitionSpec {
	return PartitionSpec{Scheme: SchemeUnknown, NumPartitions: numPartitions}
}

// Equal reports whether two specs describe the same physical distribution.
// Used by DropRepartition: a Repartition whose spec equals its child's is
// redundant and may be elided (except RANGE, handled by the caller).
func (p PartitionSpec) Equal(o PartitionSpec) bool {
	if p.Scheme != o.Scheme || p.NumPartitions != o.NumPartitions {
		return false
	}
	if len(p.Keys) != len(o.Keys) {
		return false
	}
	for i := range p.Keys {
		if p.Keys[i] != o.Keys[i] {
			return false
		}
	}
	if len(p.Descending) != len(o.Descending) {
		return false
	}
	for i := range p.Descending {
		if p.Descending[i] != o.Descending[i] {
			return false
		}
	}
	return true
}
