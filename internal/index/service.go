package index

import "github.com/jward/semdiff/internal/syntax"

// Member is one function member of a service with its bucket key.
type Member struct {
	Key      string
	Function *syntax.Function
}

// ServiceMembers buckets a service's function members. Object holds every
// function member by name; Resource and Remote hold the qualified subsets
// under their own keys, so a member appears in Object and in at most one of
// the other two.
type ServiceMembers struct {
	Resource map[string]Member
	Remote   map[string]Member
	Object   map[string]Member
}

// IndexService buckets the function members of svc. Later members replace
// earlier ones with the same key.
func IndexService(svc *syntax.Service) ServiceMembers {
	sm := ServiceMembers{
		Resource: make(map[string]Member),
		Remote:   make(map[string]Member),
		Object:   make(map[string]Member),
	}
	if svc == nil {
		return sm
	}
	for _, m := range svc.Members {
		fn, ok := m.(*syntax.Function)
		if !ok {
			continue
		}
		switch {
		case fn.HasQualifier("resource"):
			key := ResourceKey(fn)
			sm.Resource[key] = Member{Key: key, Function: fn}
		case fn.HasQualifier("remote"):
			key := MethodKey(fn)
			sm.Remote[key] = Member{Key: key, Function: fn}
		}
		key := MethodKey(fn)
		sm.Object[key] = Member{Key: key, Function: fn}
	}
	return sm
}

// Buckets returns the three maps in comparison order: remote, resource,
// object.
func (sm ServiceMembers) Buckets() []map[string]Member {
	return []map[string]Member{sm.Remote, sm.Resource, sm.Object}
}
