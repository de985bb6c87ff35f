package handler

import (
	"fmt"
	"reflect"

	"github.com/kestrel-ev/evbus/filter"
	"github.com/kestrel-ev/evbus/id"
)

// Analyze introspects h and returns one Descriptor per Subscription h
// reports via Subscriptions(), in the order returned. If h does not
// implement Subscribing, Analyze returns an empty slice and no error —
// a handler with no subscriptions is not itself an error.
func Analyze(h Handler) ([]*Descriptor, error) {
	subscribing, ok := h.(Subscribing)
	if !ok {
		return nil, nil
	}

	subs := subscribing.Subscriptions()
	descriptors := make([]*Descriptor, 0, len(subs))

	for i, sub := range subs {
		label := fmt.Sprintf("%T.Subscriptions()[%d]", h, i)

		d, err := buildDescriptor(h, sub, label)
		if err != nil {
			return nil, err
		}

		descriptors = append(descriptors, d)
	}

	return descriptors, nil
}

func buildDescriptor(h Handler, sub Subscription, label string) (*Descriptor, error) {
	if sub.invoke == nil {
		return nil, &SubscriptionError{Method: label, Reason: ErrNilCallback}
	}

	if sub.eventType == nil || !isConcreteEventType(sub.eventType, sub.acceptSubclasses) {
		return nil, &SubscriptionError{Method: label, Reason: ErrNotConcreteType}
	}

	d := &Descriptor{
		id:               id.NewHandlerID(),
		eventType:        sub.eventType,
		target:           h,
		invoke:           sub.invoke,
		priority:         sub.priority,
		forced:           sub.forced,
		acceptSubclasses: sub.acceptSubclasses,
	}

	if sub.filterType != nil {
		f, err := constructFilter(sub.filterType, d, label)
		if err != nil {
			return nil, err
		}

		d.filterVal = f
	}

	return d, nil
}

// isConcreteEventType reports whether t is an admissible subscription
// parameter type. Non-subclass subscriptions must name a concrete
// struct or pointer-to-struct; subclass-accepting subscriptions are
// expected to name an interface type instead (the Go reinterpretation
// of "matches any subclass"), so interfaces are only rejected when
// acceptSubclasses is false.
func isConcreteEventType(t reflect.Type, acceptSubclasses bool) bool {
	if acceptSubclasses {
		return t.Kind() == reflect.Interface || concreteKind(t)
	}

	return concreteKind(t)
}

func concreteKind(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Struct:
		return true
	case reflect.Ptr:
		return t.Elem().Kind() == reflect.Struct
	default:
		return false
	}
}

func constructFilter(filterType reflect.Type, d *Descriptor, label string) (filter.Filter, error) {
	target := filterType
	if target.Kind() == reflect.Ptr {
		target = target.Elem()
	}

	if target.Kind() != reflect.Struct {
		return nil, &SubscriptionError{Method: label, Reason: ErrFilterNotConstructible}
	}

	instance := reflect.New(target) // always a pointer

	f, ok := instance.Interface().(filter.Filter)
	if !ok {
		return nil, &SubscriptionError{Method: label, Reason: ErrFilterWrongType}
	}

	if initable, ok := instance.Interface().(filter.Initializable); ok {
		initable.Init(d)
	}

	return f, nil
}
