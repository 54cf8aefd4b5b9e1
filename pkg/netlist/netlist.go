// Package netlist defines the bipartite graph of nets and combinators
// produced by pkg/synth: the contract external layout and blueprint-
// serialization collaborators consume.
package netlist

import "github.com/dthusian/k2se/pkg/ast"

// NetID indexes Netlist.Nets.
type NetID int

// CombinatorID indexes Netlist.Combinators.
type CombinatorID int

// Color is the wire color a Net is strung on.
type Color int

const (
	Red Color = iota
	Green
)

// Conn names one (combinator, port) endpoint attached to a net.
type Conn struct {
	Combinator CombinatorID
	Port       int
}

// Net is one colored wire, optionally carrying a single resolved signal.
type Net struct {
	NetType ast.NetType
	Color   Color
	Signal  *Signal

	// InConn lists combinators that READ this net.
	InConn []Conn
	// OutConn lists combinators that WRITE this net.
	OutConn []Conn
}

// ExternalConn records one boundary (module-port) connection: a red/green
// net pair, its 4-character display name, and optional bound signal.
type ExternalConn struct {
	RedNetID    NetID
	GreenNetID  NetID
	DisplayName [4]byte
	Signal      *Signal
}

// SignalKind is a signal's category in Factorio's signal taxonomy: item,
// fluid or virtual.
type SignalKind int

const (
	Item SignalKind = iota
	Fluid
	Virtual
)

// Signal is a concrete named signal channel.
type Signal struct {
	Kind SignalKind
	Name string
}

// SignalWithCount pairs a signal with a fixed value, used by constant
// combinators.
type SignalWithCount struct {
	Signal Signal
	Count  int32
}

// SignalRef is the tagged union a combinator uses to select which signal(s)
// it reads or writes. IncompleteSignal is a synthesis-only placeholder that
// MUST be resolved to a concrete Signal before a net is emitted.
type SignalRef struct {
	kind             signalRefKind
	signal           Signal
	constVal         int32
	incompleteNetRef int
}

type signalRefKind int

const (
	refAnything signalRefKind = iota
	refEach
	refEverything
	refSignal
	refConst
	refIncomplete
)

func Anything() SignalRef { return SignalRef{kind: refAnything} }
func Each() SignalRef      { return SignalRef{kind: refEach} }
func Everything() SignalRef {
	return SignalRef{kind: refEverything}
}

func SignalOf(s Signal) SignalRef { return SignalRef{kind: refSignal, signal: s} }
func Const(v int32) SignalRef     { return SignalRef{kind: refConst, constVal: v} }

// IncompleteSignal constructs a placeholder referencing an incomplete net by
// id, as allocated by pkg/synth. Only pkg/synth should construct these.
func IncompleteSignal(incompleteNetID int) SignalRef {
	return SignalRef{kind: refIncomplete, incompleteNetRef: incompleteNetID}
}

// IsIncomplete reports whether this ref still needs resolving.
func (s SignalRef) IsIncomplete() bool { return s.kind == refIncomplete }

// IncompleteRef returns the incomplete-net id this ref points at. Only
// meaningful when IsIncomplete() is true.
func (s SignalRef) IncompleteRef() int { return s.incompleteNetRef }

// Resolved returns a copy of this ref with an IncompleteSignal replaced by a
// concrete signal. Panics if this ref is not incomplete, since that would
// indicate a synthesis bug rather than a user error.
func (s SignalRef) Resolved(sig Signal) SignalRef {
	if s.kind != refIncomplete {
		panic("netlist: Resolved called on a non-incomplete SignalRef")
	}

	return SignalOf(sig)
}

// Signal returns the concrete signal, if this ref names one.
func (s SignalRef) Signal() (Signal, bool) {
	if s.kind == refSignal {
		return s.signal, true
	}

	return Signal{}, false
}

// ConstVal returns the constant value, if this ref is a compile-time const.
func (s SignalRef) ConstVal() (int32, bool) {
	if s.kind == refConst {
		return s.constVal, true
	}

	return 0, false
}

// VanillaOp enumerates the 17 arithmetic/comparison operators a Vanilla
// combinator can perform; assignment forms never reach synthesis.
type VanillaOp int

const (
	OpAdd VanillaOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpAnd
	OpOr
	OpXor
	OpShl
	OpShr
	OpEq
	OpNe
	OpGt
	OpLt
	OpLe
	OpGe
)

// Combinator is a tagged union of the two combinator shapes.
type Combinator struct {
	Vanilla  *Vanilla
	Constant *Constant
}

// Vanilla represents an arithmetic or decider combinator.
type Vanilla struct {
	Op int
	// InputNets/OutputNets hold up to one red and one green net id. By
	// convention index 0 is red and index 1 is green.
	InputNets  [2]*NetID
	OutputNets [2]*NetID

	InputSignals [2]SignalRef
	OutputSignal SignalRef
	// OutputCount is the decider "input count" checkbox.
	OutputCount bool
}

// VanillaOpOf narrows the generic Op field back to a VanillaOp.
func (v *Vanilla) VanillaOpOf() VanillaOp { return VanillaOp(v.Op) }

// Constant represents a constant combinator with up to 20 fixed output
// signals.
type Constant struct {
	Enabled     bool
	OutputNets  [2]*NetID
	OutputSlots [20]*SignalWithCount
}

// Netlist is the synthesized output: nets, boundary connections and
// combinators, plus the module-instantiation path each combinator arose
// from. pkg/layout places combinators in index order and does not read
// CombinatorModpath.
type Netlist struct {
	Nets             []Net
	ExternalConns    []ExternalConn
	Combinators      []Combinator
	CombinatorModpath [][]string
}

// AddNet appends a net and returns its id.
func (n *Netlist) AddNet(net Net) NetID {
	id := NetID(len(n.Nets))
	n.Nets = append(n.Nets, net)

	return id
}

// AddCombinator appends a combinator and returns its id.
func (n *Netlist) AddCombinator(c Combinator, modpath []string) CombinatorID {
	id := CombinatorID(len(n.Combinators))
	n.Combinators = append(n.Combinators, c)
	n.CombinatorModpath = append(n.CombinatorModpath, modpath)

	return id
}

// ConnectIn records that combinator `cid` reads net `nid` at `port`. Only
// the net's InConn list is updated; the combinator's own InputNets are set
// by the caller.
func (n *Netlist) ConnectIn(nid NetID, cid CombinatorID, port int) {
	n.Nets[nid].InConn = append(n.Nets[nid].InConn, Conn{cid, port})
}

// ConnectOut records that combinator `cid` writes net `nid` at `port`.
func (n *Netlist) ConnectOut(nid NetID, cid CombinatorID, port int) {
	n.Nets[nid].OutConn = append(n.Nets[nid].OutConn, Conn{cid, port})
}
