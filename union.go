package msgpack

import (
	"fmt"
	"reflect"

	"github.com/richinsley/msgpack/shape"
)

// union.go implements the Union shape kind: the explicit-discriminator
// protocol and the shape-based decision tree that distinguishes members
// by their required properties.

type unionMember struct {
	discriminator interface{}
	conv          Converter
	goType        reflect.Type
	required      map[string]bool
}

// unionConverter implements the explicit-discriminator Union protocol: a
// two-element array [discriminator, payload].
type unionConverter struct {
	goType  reflect.Type
	members []unionMember
	byDisc  map[interface{}]*unionMember
	tree    *unionDecisionNode // non-nil when a shape-based tree could be built
	async   bool
}

func buildUnionConverter(sh shape.Shape, ctx *Context) (Converter, error) {
	c := &unionConverter{
		goType: sh.GoType,
		byDisc: make(map[interface{}]*unionMember),
	}
	for _, m := range sh.Members {
		conv, err := ctx.GetConverter(m.Type.Shape().GoType)
		if err != nil {
			return nil, err
		}
		required := make(map[string]bool, len(m.RequiredProperties))
		for _, r := range m.RequiredProperties {
			required[r] = true
		}
		member := unionMember{
			discriminator: normalizeDiscriminator(m.Discriminator),
			conv:          conv,
			goType:        m.Type.Shape().GoType,
			required:      required,
		}
		c.members = append(c.members, member)
		if conv.PrefersAsync() {
			c.async = true
		}
	}
	for i := range c.members {
		c.byDisc[c.members[i].discriminator] = &c.members[i]
	}

	// Attempt the shape-based decision tree; a union with explicit
	// discriminators still gets one built, so ReadShapeBased can be used
	// directly where the caller prefers peek-based dispatch over reading
	// a two-element array.
	c.tree = buildUnionDecisionTree(c.members)

	return c, nil
}

func (c *unionConverter) Write(w *Writer, v reflect.Value, ctx *Context) error {
	if err := ctx.DepthStep(); err != nil {
		return err
	}
	defer ctx.DepthRelease()

	vt := v.Type()
	if v.Kind() == reflect.Ptr && !v.IsNil() {
		vt = v.Elem().Type()
	}
	var member *unionMember
	for i := range c.members {
		if c.members[i].goType == vt {
			member = &c.members[i]
			break
		}
	}
	if member == nil {
		return newErrorf(CodeUnknownUnionDiscriminator, "type %s is not a member of this union", vt)
	}

	if err := w.WriteArrayHeader(2); err != nil {
		return err
	}
	if err := writeDiscriminator(w, member.discriminator); err != nil {
		return err
	}
	payload := v
	if v.Kind() == reflect.Ptr {
		payload = v.Elem()
	}
	return member.conv.Write(w, payload, ctx)
}

func (c *unionConverter) Read(r *Reader, ctx *Context) (reflect.Value, error) {
	if err := ctx.DepthStep(); err != nil {
		return reflect.Value{}, err
	}
	defer ctx.DepthRelease()

	n, err := r.DecodeArrayHeader()
	if err != nil {
		return reflect.Value{}, err
	}
	if n != 2 {
		return reflect.Value{}, newErrorf(CodeUnexpectedToken, "union array must have 2 elements, got %d", n)
	}

	disc, err := readDiscriminator(r)
	if err != nil {
		return reflect.Value{}, err
	}
	member, ok := c.byDisc[disc]
	if !ok {
		return reflect.Value{}, unknownUnionDiscriminator(formatDiscriminator(disc))
	}
	return member.conv.Read(r, ctx)
}

func (c *unionConverter) PrefersAsync() bool { return c.async }

// normalizeDiscriminator widens integer discriminators to int64 so a
// shape declaring `5` (an int) and a wire read producing int64(5) land on
// the same byDisc key.
func normalizeDiscriminator(d interface{}) interface{} {
	switch v := d.(type) {
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	default:
		return d
	}
}

func writeDiscriminator(w *Writer, d interface{}) error {
	switch v := d.(type) {
	case string:
		return w.WriteString(v)
	case int:
		return w.WriteInt(int64(v))
	case int64:
		return w.WriteInt(v)
	default:
		return newErrorf(CodeUnexpectedToken, "unsupported union discriminator type %T", d)
	}
}

func readDiscriminator(r *Reader) (interface{}, error) {
	b, err := r.PeekFormat()
	if err != nil {
		return nil, err
	}
	if isFixStr(b) || b == formatStr8 || b == formatStr16 || b == formatStr32 {
		return r.DecodeString()
	}
	return r.DecodeInt(64)
}

func formatDiscriminator(d interface{}) string {
	if s, ok := d.(string); ok {
		return s
	}
	return fmt.Sprint(d)
}

// unionDecisionNode is one step of the decision tree: test whether a
// peeked map contains propertyName; branch to ifPresent or ifAbsent.
// A leaf node has member set and both branches nil.
type unionDecisionNode struct {
	propertyName string
	ifPresent    *unionDecisionNode
	ifAbsent     *unionDecisionNode
	member       *unionMember
}

// buildUnionDecisionTree builds the tree: repeatedly find a
// required property that distinguishes some subset of the remaining
// candidates from the rest, until every member is uniquely identified.
// Returns nil if any two members cannot be distinguished this way.
func buildUnionDecisionTree(members []unionMember) *unionDecisionNode {
	idx := make([]int, len(members))
	for i := range members {
		idx[i] = i
	}
	return buildDecisionNode(members, idx, map[string]bool{})
}

func buildDecisionNode(members []unionMember, candidates []int, used map[string]bool) *unionDecisionNode {
	if len(candidates) == 1 {
		return &unionDecisionNode{member: &members[candidates[0]]}
	}
	if len(candidates) == 0 {
		return nil
	}

	// Find a required property name present in some but not all
	// candidates, not already used higher in the tree.
	counts := map[string]int{}
	for _, ci := range candidates {
		for name := range members[ci].required {
			if !used[name] {
				counts[name]++
			}
		}
	}
	var chosen string
	for name, n := range counts {
		if n > 0 && n < len(candidates) {
			chosen = name
			break
		}
	}
	if chosen == "" {
		// No distinguishing property left; if more than one candidate
		// remains, they cannot be told apart.
		return nil
	}

	var present, absent []int
	for _, ci := range candidates {
		if members[ci].required[chosen] {
			present = append(present, ci)
		} else {
			absent = append(absent, ci)
		}
	}

	usedNext := make(map[string]bool, len(used)+1)
	for k := range used {
		usedNext[k] = true
	}
	usedNext[chosen] = true

	ifPresent := buildDecisionNode(members, present, usedNext)
	ifAbsent := buildDecisionNode(members, absent, usedNext)
	if ifPresent == nil || ifAbsent == nil {
		return nil
	}
	return &unionDecisionNode{propertyName: chosen, ifPresent: ifPresent, ifAbsent: ifAbsent}
}

// ReadShapeBased dispatches using the decision tree instead of an
// explicit discriminator: it peeks the upcoming map (buffering it without
// consuming via the caller-supplied peekKeys), decides which member
// applies, then delegates to that member's converter to actually consume
// the bytes. Returns NotSupported if no tree could be built for this
// union (callers should fall back to the explicit-discriminator form).
func (c *unionConverter) ReadShapeBased(r *Reader, ctx *Context, peekKeys func() (map[string]bool, error)) (reflect.Value, error) {
	if c.tree == nil {
		return reflect.Value{}, notSupported(c.goType.String(), "union members could not be distinguished by required properties")
	}
	if err := ctx.DepthStep(); err != nil {
		return reflect.Value{}, err
	}
	defer ctx.DepthRelease()

	keys, err := peekKeys()
	if err != nil {
		return reflect.Value{}, err
	}

	node := c.tree
	for node.member == nil {
		if keys[node.propertyName] {
			node = node.ifPresent
		} else {
			node = node.ifAbsent
		}
	}
	return node.member.conv.Read(r, ctx)
}
