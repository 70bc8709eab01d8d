package engine

import (
	"iter"
	"strconv"
)

// Enabler is an interface that defines a single Enabled() method, which is
// used by the UI to check if an Action/Bool/Int etc. is enabled or not.
type Enabler interface {
	Enabled() bool
}

// Action

type (
	// Action describes a user action that can be performed on the model,
	// initiated by calling the Do() method. It is usually bound to a button,
	// a key or a MIDI control. Action advertises whether it is enabled, so a
	// UI can gray out controls when the underlying action is not allowed. The
	// underlying Doer can optionally implement the Enabler interface to
	// decide if the action is enabled; if it does not, the action is always
	// allowed.
	Action struct {
		doer Doer
	}

	// Doer is an interface that defines a single Do() method, called when an
	// action is performed.
	Doer interface {
		Do()
	}
)

func MakeAction(doer Doer) Action { return Action{doer: doer} }

func (a Action) Do() {
	e, ok := a.doer.(Enabler)
	if ok && !e.Enabled() {
		return
	}
	if a.doer != nil {
		a.doer.Do()
	}
}

func (a Action) Enabled() bool {
	if a.doer == nil {
		return false // no doer, not allowed
	}
	e, ok := a.doer.(Enabler)
	if !ok {
		return true // not enabler, always allowed
	}
	return e.Enabled()
}

// Bool

type (
	Bool struct {
		value BoolValue
	}

	BoolValue interface {
		Value() bool
		SetValue(bool)
	}
)

func MakeBool(value BoolValue) Bool { return Bool{value: value} }
func (v Bool) Toggle()              { v.SetValue(!v.Value()) }

func (v Bool) SetValue(value bool) (changed bool) {
	if !v.Enabled() || v.Value() == value {
		return false
	}
	v.value.SetValue(value)
	return true
}

func (v Bool) Value() bool {
	if v.value == nil {
		return false
	}
	return v.value.Value()
}

func (v Bool) Enabled() bool {
	if v.value == nil {
		return false
	}
	e, ok := v.value.(Enabler)
	if !ok {
		return true
	}
	return e.Enabled()
}

// Int

type (
	// Int represents an integer value in the model e.g. tempo, repeat count,
	// etc. It wraps an IntValue and guards that all changes stay within the
	// range of the underlying implementation and that SetValue is not called
	// when the value is unchanged. The IntValue can optionally implement
	// StringOfer to provide custom string representations of values.
	Int struct {
		value IntValue
	}

	IntValue interface {
		Value() int
		SetValue(int) (changed bool)
		Range() RangeInclusive
	}

	StringOfer interface {
		StringOf(value int) string
	}
)

func MakeInt(value IntValue) Int { return Int{value} }

func (v Int) Add(delta int) (changed bool) {
	return v.SetValue(v.Value() + delta)
}

func (v Int) SetValue(value int) (changed bool) {
	r := v.Range()
	value = r.Clamp(value)
	if value == v.Value() || value < r.Min || value > r.Max {
		return false
	}
	return v.value.SetValue(value)
}

func (v Int) Range() RangeInclusive {
	if v.value == nil {
		return RangeInclusive{0, 0}
	}
	return v.value.Range()
}

func (v Int) Value() int {
	if v.value == nil {
		return 0
	}
	return v.value.Value()
}

func (v Int) String() string {
	return v.StringOf(v.Value())
}

func (v Int) StringOf(value int) string {
	if s, ok := v.value.(StringOfer); ok {
		return s.StringOf(value)
	}
	return strconv.Itoa(value)
}

// String

type (
	String struct {
		value StringValue
	}

	StringValue interface {
		Value() string
		SetValue(string) (changed bool)
	}
)

func MakeString(value StringValue) String { return String{value: value} }

func (v String) SetValue(value string) (changed bool) {
	if v.value == nil || v.value.Value() == value {
		return false
	}
	return v.value.SetValue(value)
}

func (v String) Value() string {
	if v.value == nil {
		return ""
	}
	return v.value.Value()
}

// List

type (
	List struct {
		data ListData
	}

	ListData interface {
		Selected() int
		SetSelected(int)
		Count() int
	}

	MutableListData interface {
		Change(kind string, severity ChangeSeverity) func()
		Cancel()
		Move(r Range, delta int) (ok bool)
		Delete(r Range) (ok bool)
	}
)

func MakeList(data ListData) List { return List{data} }

func (l List) Selected() int         { return max(min(l.data.Selected(), l.data.Count()-1), 0) }
func (l List) SetSelected(value int) { l.data.SetSelected(max(min(value, l.data.Count()-1), 0)) }
func (l List) Count() int            { return l.data.Count() }

// MoveElements moves the selected element of the list by delta. The list must
// implement the MutableListData interface.
func (v List) MoveElements(delta int) bool {
	s, ok := v.data.(MutableListData)
	if !ok {
		return false
	}
	r := Range{v.Selected(), v.Selected() + 1}
	if delta == 0 || r.Start+delta < 0 || r.End+delta > v.Count() {
		return false
	}
	defer s.Change("MoveElements", MajorChange)()
	if !s.Move(r, delta) {
		s.Cancel()
		return false
	}
	v.SetSelected(v.Selected() + delta)
	return true
}

// DeleteElements deletes the selected element of the list. The list must
// implement the MutableListData interface.
func (v List) DeleteElements(backwards bool) bool {
	d, ok := v.data.(MutableListData)
	if !ok {
		return false
	}
	r := Range{v.Selected(), v.Selected() + 1}
	if v.Count() == 0 {
		return false
	}
	defer d.Change("DeleteElements", MajorChange)()
	if !d.Delete(r) {
		d.Cancel()
		return false
	}
	if backwards && r.Start > 0 {
		r.Start--
	}
	v.SetSelected(r.Start)
	return true
}

func (v List) Mutable() bool {
	_, ok := v.data.(MutableListData)
	return ok
}

// RangeInclusive represents a range of integers [Min, Max], inclusive.
type RangeInclusive struct{ Min, Max int }

func (r RangeInclusive) Clamp(value int) int { return max(min(value, r.Max), r.Min) }

// Range is used to represent a range [Start,End) of integers, excluding End.
type Range struct{ Start, End int }

func (r Range) Len() int { return r.End - r.Start }

func (r Range) Swaps(delta int) iter.Seq2[int, int] {
	if delta > 0 {
		return func(yield func(int, int) bool) {
			for i := r.End - 1; i >= r.Start; i-- {
				if !yield(i, i+delta) {
					return
				}
			}
		}
	}
	return func(yield func(int, int) bool) {
		for i := r.Start; i < r.End; i++ {
			if !yield(i, i+delta) {
				return
			}
		}
	}
}

// Insert inserts elements into a slice at the given index. If the index is
// out of bounds, the function returns false.
func Insert[T any, S ~[]T](slice S, index int, inserted ...T) (ret S, ok bool) {
	if index < 0 || index > len(slice) {
		return nil, false
	}
	ret = make(S, 0, len(slice)+len(inserted))
	ret = append(ret, slice[:index]...)
	ret = append(ret, inserted...)
	ret = append(ret, slice[index:]...)
	return ret, true
}
