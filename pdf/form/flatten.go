package form

import (
	"bytes"
	"fmt"
	"math"
	"sort"

	"github.com/georgepadayatti/esign/pdf/generic"
	"github.com/georgepadayatti/esign/pdf/writer"
)

// FlattenResult summarizes a Flatten call.
type FlattenResult struct {
	Fields  int
	Drawn   int
	Removed int
}

type widgetDraw struct {
	xobject generic.Reference
	matrix  [6]float64
}

type pagePlan struct {
	draws  []widgetDraw
	remove map[generic.Reference]bool
}

// Flatten burns the current appearance of every form field into the page
// content and removes the fields and their widget annotations. Widgets
// without a normal appearance, or flagged hidden, disappear without being
// drawn. The changes are staged on w.
func Flatten(w *writer.IncrementalWriter) (FlattenResult, error) {
	var res FlattenResult
	fields, err := ReadFields(w)
	if err != nil {
		return res, err
	}
	if len(fields) == 0 {
		return res, nil
	}
	res.Fields = len(fields)

	r := w.Reader()
	plans := make(map[int]*pagePlan)
	for _, field := range fields {
		for _, widget := range field.Widgets {
			idx := widgetPage(w, widget)
			if idx < 0 {
				continue
			}
			plan := plans[idx]
			if plan == nil {
				plan = &pagePlan{remove: make(map[generic.Reference]bool)}
				plans[idx] = plan
			}
			if widget.Ref != (generic.Reference{}) {
				plan.remove[widget.Ref] = true
			}

			if flags, _ := widget.Dict.GetInt("F"); flags&(annotFlagHidden|annotFlagNoView) != 0 {
				continue
			}
			draw, ok, err := planDraw(w, widget.Dict)
			if err != nil {
				return res, err
			}
			if ok {
				plan.draws = append(plan.draws, draw)
			}
		}
	}

	indices := make([]int, 0, len(plans))
	for idx := range plans {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	for _, idx := range indices {
		removed, err := applyPlan(w, r.Pages[idx].Ref, plans[idx])
		if err != nil {
			return res, fmt.Errorf("flattening page %d: %w", idx+1, err)
		}
		res.Drawn += len(plans[idx].draws)
		res.Removed += removed
	}

	acroForm, err := EditableAcroForm(w)
	if err != nil {
		return res, err
	}
	acroForm.Set("Fields", generic.ArrayObject{})
	acroForm.Delete("NeedAppearances")
	acroForm.Delete("XFA")
	return res, nil
}

// widgetPage finds the page a widget sits on: /P when it is valid, else the
// first page listing the widget in /Annots.
func widgetPage(w *writer.IncrementalWriter, widget Widget) int {
	r := w.Reader()
	if p, ok := widget.Dict.Get("P").(generic.Reference); ok {
		if idx := r.PageIndex(p); idx >= 0 {
			return idx
		}
	}
	if widget.Ref == (generic.Reference{}) {
		return -1
	}
	for i, page := range r.Pages {
		for _, a := range w.ResolveArray(page.Dict.Get("Annots")) {
			if a == widget.Ref {
				return i
			}
		}
	}
	return -1
}

// planDraw works out which form XObject to paint and where. ok is false
// when the widget has nothing to draw.
func planDraw(w *writer.IncrementalWriter, widget *generic.DictionaryObject) (widgetDraw, bool, error) {
	r := w.Reader()
	rectArr := w.ResolveArray(widget.Get("Rect"))
	rect, err := generic.NewRectangle(rectArr)
	if err != nil || rect.Width() == 0 || rect.Height() == 0 {
		return widgetDraw{}, false, nil
	}

	ap := w.ResolveDict(widget.Get("AP"))
	normal := ap.Get("N")
	if normal == nil {
		return widgetDraw{}, false, nil
	}
	// State-dependent appearances are keyed by /AS.
	if states := r.ResolveDict(normal); states != nil && r.ResolveStream(normal) == nil {
		normal = states.Get(widget.GetName("AS"))
	}
	stream := r.ResolveStream(normal)
	if stream == nil {
		return widgetDraw{}, false, nil
	}

	ref, isRef := normal.(generic.Reference)
	if !isRef || stream.Dictionary.GetName("Subtype") != "Form" {
		clone := stream.Clone().(*generic.StreamObject)
		clone.Dictionary.Set("Type", generic.NameObject("XObject"))
		clone.Dictionary.Set("Subtype", generic.NameObject("Form"))
		if !clone.Dictionary.Has("BBox") {
			clone.Dictionary.Set("BBox", generic.Rectangle{URX: rect.Width(), URY: rect.Height()}.Array())
		}
		ref = w.AddObject(clone)
		stream = clone
	}

	bbox, err := generic.NewRectangle(r.ResolveArray(stream.Dictionary.Get("BBox")))
	if err != nil {
		bbox = generic.Rectangle{URX: rect.Width(), URY: rect.Height()}
	}
	m := [6]float64{1, 0, 0, 1, 0, 0}
	if nums, ok := r.ResolveArray(stream.Dictionary.Get("Matrix")).Numbers(); ok && len(nums) == 6 {
		copy(m[:], nums)
	}

	// Transform the bounding box by /Matrix and fit the result onto /Rect.
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range [][2]float64{{bbox.LLX, bbox.LLY}, {bbox.URX, bbox.LLY}, {bbox.LLX, bbox.URY}, {bbox.URX, bbox.URY}} {
		x := m[0]*c[0] + m[2]*c[1] + m[4]
		y := m[1]*c[0] + m[3]*c[1] + m[5]
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	if maxX-minX == 0 || maxY-minY == 0 {
		return widgetDraw{}, false, nil
	}
	sx := rect.Width() / (maxX - minX)
	sy := rect.Height() / (maxY - minY)
	return widgetDraw{
		xobject: ref,
		matrix:  [6]float64{sx, 0, 0, sy, rect.LLX - sx*minX, rect.LLY - sy*minY},
	}, true, nil
}

// applyPlan rewrites one page: the existing content is wrapped in q/Q, the
// appearances are painted after it and the widgets leave /Annots.
func applyPlan(w *writer.IncrementalWriter, pageRef generic.Reference, plan *pagePlan) (int, error) {
	r := w.Reader()
	page, err := w.Editable(pageRef)
	if err != nil {
		return 0, err
	}

	if len(plan.draws) > 0 {
		resources := generic.NewDictionary()
		if inheritedRes := w.ResolveDict(r.PageAttr(page, "Resources")); inheritedRes != nil {
			resources = inheritedRes.Clone().(*generic.DictionaryObject)
		}
		xobjects := generic.NewDictionary()
		if existing := w.ResolveDict(resources.Get("XObject")); existing != nil {
			xobjects = existing.Clone().(*generic.DictionaryObject)
		}

		var ops bytes.Buffer
		ops.WriteString("\nQ\n")
		n := 0
		for _, d := range plan.draws {
			name := ""
			for name == "" || xobjects.Has(name) {
				n++
				name = fmt.Sprintf("FlatWidget%d", n)
			}
			xobjects.Set(name, d.xobject)
			fmt.Fprintf(&ops, "q\n%s %s %s %s %s %s cm\n/%s Do\nQ\n",
				generic.FormatReal(d.matrix[0]), generic.FormatReal(d.matrix[1]),
				generic.FormatReal(d.matrix[2]), generic.FormatReal(d.matrix[3]),
				generic.FormatReal(d.matrix[4]), generic.FormatReal(d.matrix[5]), name)
		}
		resources.Set("XObject", xobjects)
		page.Set("Resources", resources)

		contents := generic.ArrayObject{w.AddObject(generic.NewStream(nil, []byte("q\n")))}
		switch existing := page.Get("Contents"); {
		case existing == nil:
		case w.ResolveArray(existing) != nil:
			contents = append(contents, w.ResolveArray(existing)...)
		default:
			contents = append(contents, existing)
		}
		contents = append(contents, w.AddObject(generic.NewStream(nil, ops.Bytes())))
		page.Set("Contents", contents)
	}

	removed := 0
	var kept generic.ArrayObject
	for _, a := range w.ResolveArray(page.Get("Annots")) {
		if ref, ok := a.(generic.Reference); ok && plan.remove[ref] {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	if len(kept) == 0 {
		page.Delete("Annots")
	} else {
		page.Set("Annots", kept)
	}
	return removed, nil
}
