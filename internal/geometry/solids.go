package geometry

import (
	"fmt"
	"math"
	"strconv"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/funvibe/solidscript/internal/ast"
	"github.com/funvibe/solidscript/internal/classify"
	"github.com/funvibe/solidscript/internal/diagnostics"
	"github.com/funvibe/solidscript/internal/eval"
	"github.com/funvibe/solidscript/internal/scope"
	"github.com/funvibe/solidscript/internal/value"
)

// buildSolid evaluates a shape statement's arguments and builds its
// kernel solid, folding child blocks into it. The returned args map is
// keyed like the classifier's parameter extraction: argument name, or
// the zero-based position for positional arguments.
func (e *Emitter) buildSolid(node *ast.Node, id scope.ID, depth int) (sdf.SDF3, map[string]value.Value, error) {
	raw, err := e.evalArgs(node, id)
	if err != nil {
		return nil, nil, err
	}
	args := argMap(raw)

	var s sdf.SDF3
	var buildErr error
	switch node.Type {
	case "cube":
		s, buildErr = cubeSolid(args)
	case "sphere":
		s, buildErr = sphereSolid(args)
	case "cylinder":
		s, buildErr = cylinderSolid(args)
	case "square", "circle", "polygon", "polyhedron", "text":
		// no kernel representation, the payload carries the arguments
		return nil, raw, nil
	case "translate", "rotate", "scale", "mirror", "color", "multmatrix":
		children, err := e.childSolids(node.Children, id, depth)
		if err != nil {
			return nil, nil, err
		}
		s, buildErr = transformSolid(node.Type, args, unionOf(children))
	case "union", "difference", "intersection", "hull", "minkowski":
		children, err := e.childSolids(node.Children, id, depth)
		if err != nil {
			return nil, nil, err
		}
		s, buildErr = combineSolids(node.Type, children)
	default:
		return nil, nil, newError(node, diagnostics.ErrG001, "unsupported node type: %s", node.Type)
	}
	if buildErr != nil {
		return nil, nil, newError(node, diagnostics.ErrG002, "invalid %s parameters: %s", node.Type, buildErr)
	}
	return s, raw, nil
}

// childSolids builds the solids of a statement's child block. Nodes
// without a kernel representation contribute nothing; declarations and
// assignments are handled the way the statement walk handles them.
func (e *Emitter) childSolids(children []*ast.Node, id scope.ID, depth int) ([]sdf.SDF3, error) {
	if len(children) == 0 {
		return nil, nil
	}
	frame := e.arena.NewScope("block", id)
	defer e.arena.Release(frame)

	var out []sdf.SDF3
	for _, child := range children {
		switch {
		case child == nil:
			continue

		case child.Type == ast.TypeModuleDefinition || child.Type == ast.TypeFunction:
			continue

		case child.Type == ast.TypeAssignment:
			v, err := eval.Evaluate(child.Value, e.arena, frame)
			if err != nil {
				return nil, err
			}
			e.arena.Set(frame, child.Name, v)

		case child.Type == ast.TypeLet:
			expanded, err := e.expander.Process([]*ast.Node{child}, frame, e.mode)
			if err != nil {
				return nil, err
			}
			solids, err := e.childSolids(expanded, frame, depth)
			if err != nil {
				return nil, err
			}
			out = append(out, solids...)

		case child.Type == ast.TypeModuleInstantiation:
			emitted, err := e.instantiate(child, frame, depth)
			if err != nil {
				return nil, err
			}
			for _, n := range emitted {
				if n.Payload != nil && n.Payload.Solid != nil {
					out = append(out, n.Payload.Solid)
				}
			}

		case classify.IsShape(child.Type):
			s, _, err := e.buildSolid(child, frame, depth)
			if err != nil {
				return nil, err
			}
			if s != nil {
				out = append(out, s)
			}

		default:
			return nil, newError(child, diagnostics.ErrG001, "unsupported node type: %s", child.Type)
		}
	}
	return out, nil
}

func (e *Emitter) evalArgs(node *ast.Node, id scope.ID) (map[string]value.Value, error) {
	args := make(map[string]value.Value, len(node.Parameters))
	for i, p := range node.Parameters {
		v, err := eval.Evaluate(p.Value, e.arena, id)
		if err != nil {
			return nil, err
		}
		key := p.Name
		if key == "" {
			key = strconv.Itoa(i)
		}
		args[key] = v
	}
	return args, nil
}

func cubeSolid(args argMap) (sdf.SDF3, error) {
	x, y, z := 1.0, 1.0, 1.0
	if v, ok := args.lookup("size", 0); ok {
		switch size := v.(type) {
		case *value.Number:
			x, y, z = size.Value, size.Value, size.Value
		case *value.Vector:
			dims, ok := floats(size)
			if !ok || len(dims) != 3 {
				return nil, fmt.Errorf("cube size vector must have 3 numeric elements")
			}
			x, y, z = dims[0], dims[1], dims[2]
		default:
			return nil, fmt.Errorf("cube size must be a number or vector, got %s", v.Type())
		}
	}
	center, err := args.boolean("center", 1, false)
	if err != nil {
		return nil, err
	}

	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, 0)
	if err != nil {
		return nil, err
	}
	if !center {
		// the kernel centers boxes at the origin, shift to min corner
		s = sdf.Transform3D(s, sdf.Translate3d(v3.Vec{X: x / 2, Y: y / 2, Z: z / 2}))
	}
	return s, nil
}

func sphereSolid(args argMap) (sdf.SDF3, error) {
	r := 1.0
	switch {
	case args.has("r", 0):
		var err error
		if r, err = args.number("r", 0, 1); err != nil {
			return nil, err
		}
	case args.hasNamed("d"):
		d, err := args.number("d", -1, 2)
		if err != nil {
			return nil, err
		}
		r = d / 2
	}
	return sdf.Sphere3D(r)
}

func cylinderSolid(args argMap) (sdf.SDF3, error) {
	h, err := args.number("h", 0, 1)
	if err != nil {
		return nil, err
	}
	r := 1.0
	switch {
	case args.has("r", 1):
		if r, err = args.number("r", 1, 1); err != nil {
			return nil, err
		}
	case args.hasNamed("d"):
		d, err := args.number("d", -1, 2)
		if err != nil {
			return nil, err
		}
		r = d / 2
	}
	center, err := args.boolean("center", -1, false)
	if err != nil {
		return nil, err
	}

	var s sdf.SDF3
	if args.hasNamed("r1") || args.hasNamed("r2") {
		r1, err := args.number("r1", -1, r)
		if err != nil {
			return nil, err
		}
		r2, err := args.number("r2", -1, r)
		if err != nil {
			return nil, err
		}
		if s, err = sdf.Cone3D(h, r1, r2, 0); err != nil {
			return nil, err
		}
	} else if s, err = sdf.Cylinder3D(h, r, 0); err != nil {
		return nil, err
	}
	if !center {
		// rest the base on z=0 instead of centering on the origin
		s = sdf.Transform3D(s, sdf.Translate3d(v3.Vec{Z: h / 2}))
	}
	return s, nil
}

func transformSolid(typ string, args argMap, child sdf.SDF3) (sdf.SDF3, error) {
	if child == nil {
		return nil, nil
	}

	var m sdf.M44
	switch typ {
	case "color", "multmatrix":
		// recorded in the payload arguments, geometry passes through
		return child, nil

	case "translate":
		v, err := args.vec3("v", 0, 0)
		if err != nil {
			return nil, err
		}
		m = sdf.Translate3d(v)

	case "rotate":
		arg, ok := args.lookup("a", 0)
		if !ok {
			return child, nil
		}
		switch a := arg.(type) {
		case *value.Number:
			m = sdf.RotateZ(radians(a.Value))
		case *value.Vector:
			angles, ok := floats(a)
			if !ok || len(angles) != 3 {
				return nil, fmt.Errorf("rotate angles must be a number or 3-element vector")
			}
			m = sdf.RotateZ(radians(angles[2])).
				Mul(sdf.RotateY(radians(angles[1]))).
				Mul(sdf.RotateX(radians(angles[0])))
		default:
			return nil, fmt.Errorf("rotate angles must be a number or 3-element vector, got %s", arg.Type())
		}

	case "scale":
		arg, ok := args.lookup("v", 0)
		if !ok {
			return child, nil
		}
		switch f := arg.(type) {
		case *value.Number:
			m = sdf.Scale3d(v3.Vec{X: f.Value, Y: f.Value, Z: f.Value})
		case *value.Vector:
			v, err := args.vec3("v", 0, 1)
			if err != nil {
				return nil, err
			}
			m = sdf.Scale3d(v)
		default:
			return nil, fmt.Errorf("scale factor must be a number or vector, got %s", arg.Type())
		}

	case "mirror":
		v, err := args.vec3("v", 0, 0)
		if err != nil {
			return nil, err
		}
		flip := v3.Vec{X: 1, Y: 1, Z: 1}
		if v.X != 0 {
			flip.X = -1
		}
		if v.Y != 0 {
			flip.Y = -1
		}
		if v.Z != 0 {
			flip.Z = -1
		}
		m = sdf.Scale3d(flip)

	default:
		return nil, fmt.Errorf("unhandled transformation %s", typ)
	}
	return sdf.Transform3D(child, m), nil
}

func combineSolids(typ string, solids []sdf.SDF3) (sdf.SDF3, error) {
	if len(solids) == 0 {
		return nil, nil
	}
	switch typ {
	case "union", "hull", "minkowski":
		// TODO: give hull and minkowski real implementations once the
		// kernel can round-trip meshes; until then they render as unions.
		return sdf.Union3D(solids...), nil
	case "difference":
		if len(solids) == 1 {
			return solids[0], nil
		}
		return sdf.Difference3D(solids[0], sdf.Union3D(solids[1:]...)), nil
	case "intersection":
		s := solids[0]
		for _, next := range solids[1:] {
			s = sdf.Intersect3D(s, next)
		}
		return s, nil
	}
	return nil, fmt.Errorf("unhandled operation %s", typ)
}

func unionOf(solids []sdf.SDF3) sdf.SDF3 {
	switch len(solids) {
	case 0:
		return nil
	case 1:
		return solids[0]
	}
	return sdf.Union3D(solids...)
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// argMap reads evaluated arguments by name with a positional fallback.
// A negative position means the argument is named-only.
type argMap map[string]value.Value

func (a argMap) lookup(name string, position int) (value.Value, bool) {
	if v, ok := a[name]; ok {
		return v, true
	}
	if position < 0 {
		return nil, false
	}
	v, ok := a[strconv.Itoa(position)]
	return v, ok
}

func (a argMap) has(name string, position int) bool {
	_, ok := a.lookup(name, position)
	return ok
}

func (a argMap) hasNamed(name string) bool {
	_, ok := a[name]
	return ok
}

func (a argMap) number(name string, position int, fallback float64) (float64, error) {
	v, ok := a.lookup(name, position)
	if !ok {
		return fallback, nil
	}
	n, ok := v.(*value.Number)
	if !ok {
		return 0, fmt.Errorf("%s must be a number, got %s", name, v.Type())
	}
	return n.Value, nil
}

func (a argMap) boolean(name string, position int, fallback bool) (bool, error) {
	v, ok := a.lookup(name, position)
	if !ok {
		return fallback, nil
	}
	b, ok := v.(*value.Boolean)
	if !ok {
		return false, fmt.Errorf("%s must be a boolean, got %s", name, v.Type())
	}
	return b.Value, nil
}

// vec3 reads a vector argument of 2 or 3 numeric elements, padding a
// missing third element with pad.
func (a argMap) vec3(name string, position int, pad float64) (v3.Vec, error) {
	v, ok := a.lookup(name, position)
	if !ok {
		return v3.Vec{X: pad, Y: pad, Z: pad}, nil
	}
	vec, ok := v.(*value.Vector)
	if !ok {
		return v3.Vec{}, fmt.Errorf("%s must be a vector, got %s", name, v.Type())
	}
	fs, numeric := floats(vec)
	if !numeric || len(fs) < 2 || len(fs) > 3 {
		return v3.Vec{}, fmt.Errorf("%s must be a vector of 2 or 3 numbers", name)
	}
	out := v3.Vec{X: fs[0], Y: fs[1], Z: pad}
	if len(fs) == 3 {
		out.Z = fs[2]
	}
	return out, nil
}

func floats(v *value.Vector) ([]float64, bool) {
	out := make([]float64, len(v.Elements))
	for i, el := range v.Elements {
		n, ok := el.(*value.Number)
		if !ok {
			return nil, false
		}
		out[i] = n.Value
	}
	return out, true
}
