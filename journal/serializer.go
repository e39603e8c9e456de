package journal

import (
	"encoding/json"
	"reflect"
	"sync"

	"github.com/golang/protobuf/proto"
	"github.com/pkg/errors"
)

// Serializer turns a payload into bytes.
type Serializer interface {
	Marshal(v interface{}) ([]byte, error)
}

// SerializerFunc adapts a function to the Serializer interface.
type SerializerFunc func(v interface{}) ([]byte, error)

func (f SerializerFunc) Marshal(v interface{}) ([]byte, error) { return f(v) }

var (
	BytesSerializer Serializer = SerializerFunc(func(v interface{}) ([]byte, error) {
		b, ok := v.([]byte)
		if !ok {
			return nil, errors.Errorf("bytes serializer cannot handle %T", v)
		}
		return b, nil
	})
	StringSerializer Serializer = SerializerFunc(func(v interface{}) ([]byte, error) {
		s, ok := v.(string)
		if !ok {
			return nil, errors.Errorf("string serializer cannot handle %T", v)
		}
		return []byte(s), nil
	})
	ProtoSerializer Serializer = SerializerFunc(func(v interface{}) ([]byte, error) {
		m, ok := v.(proto.Message)
		if !ok {
			return nil, errors.Errorf("proto serializer cannot handle %T", v)
		}
		return proto.Marshal(m)
	})
	JSONSerializer Serializer = SerializerFunc(json.Marshal)
)

type fallback struct {
	accepts    func(v interface{}) bool
	serializer Serializer
}

// Registry resolves the serializer in charge of a payload. Exact type bindings
// win over fallbacks, which are tried in registration order.
type Registry struct {
	mtx       sync.RWMutex
	bindings  map[reflect.Type]Serializer
	fallbacks []fallback
}

func NewRegistry() *Registry {
	return &Registry{bindings: make(map[reflect.Type]Serializer)}
}

// DefaultRegistry binds raw bytes, strings and protobuf messages.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Bind([]byte(nil), BytesSerializer)
	r.Bind("", StringSerializer)
	r.BindFunc(func(v interface{}) bool {
		_, ok := v.(proto.Message)
		return ok
	}, ProtoSerializer)
	return r
}

// Bind binds the dynamic type of sample to s.
func (r *Registry) Bind(sample interface{}, s Serializer) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.bindings[reflect.TypeOf(sample)] = s
}

// BindFunc registers s for every payload accepted by the predicate.
func (r *Registry) BindFunc(accepts func(v interface{}) bool, s Serializer) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.fallbacks = append(r.fallbacks, fallback{accepts: accepts, serializer: s})
}

// Find returns the serializer bound to the payload type.
func (r *Registry) Find(v interface{}) (Serializer, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	if s, ok := r.bindings[reflect.TypeOf(v)]; ok {
		return s, nil
	}
	for _, f := range r.fallbacks {
		if f.accepts(v) {
			return f.serializer, nil
		}
	}
	return nil, errors.Wrapf(ErrNoSerializer, "%T", v)
}
