package primitives

// WayCodec, WayNodeCodec, NodeCodec and EdgeCodec adapt the fixed-size
// record encodings above to recordstore.Codec, so each sequence kind can be
// opened as a recordstore.Sequence[T] without the record store package
// needing to know about graph types.

type WayCodec struct{}

func (WayCodec) Size() int            { return WaySize }
func (WayCodec) Encode(v Way, b []byte) { v.Encode(b) }
func (WayCodec) Decode(b []byte) Way   { return DecodeWay(b) }

type WayNodeCodec struct{}

func (WayNodeCodec) Size() int                { return WayNodeSize }
func (WayNodeCodec) Encode(v WayNode, b []byte) { v.Encode(b) }
func (WayNodeCodec) Decode(b []byte) WayNode   { return DecodeWayNode(b) }

type NodeCodec struct{}

func (NodeCodec) Size() int             { return NodeSize }
func (NodeCodec) Encode(v Node, b []byte) { v.Encode(b) }
func (NodeCodec) Decode(b []byte) Node   { return DecodeNode(b) }

type EdgeCodec struct{}

func (EdgeCodec) Size() int             { return EdgeSize }
func (EdgeCodec) Encode(v Edge, b []byte) { v.Encode(b) }
func (EdgeCodec) Decode(b []byte) Edge   { return DecodeEdge(b) }

// GraphIdCodec backs the node sorter's old-position -> canonical-GraphId
// mapping sequence (§4.3).
type GraphIdCodec struct{}

func (GraphIdCodec) Size() int               { return GraphIdSize }
func (GraphIdCodec) Encode(v GraphId, b []byte) { v.Encode(b) }
func (GraphIdCodec) Decode(b []byte) GraphId   { return DecodeGraphId(b) }

type RawRestrictionCodec struct{}

func (RawRestrictionCodec) Size() int                     { return RawRestrictionSize }
func (RawRestrictionCodec) Encode(v RawRestriction, b []byte) { v.Encode(b) }
func (RawRestrictionCodec) Decode(b []byte) RawRestriction   { return DecodeRawRestriction(b) }

type ResolvedRestrictionCodec struct{}

func (ResolvedRestrictionCodec) Size() int                         { return ResolvedRestrictionSize }
func (ResolvedRestrictionCodec) Encode(v ResolvedRestriction, b []byte) { v.Encode(b) }
func (ResolvedRestrictionCodec) Decode(b []byte) ResolvedRestriction   { return DecodeResolvedRestriction(b) }
