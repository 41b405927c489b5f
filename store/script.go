package store

import (
	"context"
	"errors"

	"github.com/eischet/janitor-sub000/vm"
)

// scriptTable gives scripts access to a store:
//
//	id = db.save(obj)
//	obj = db.load('Dog', id)   // null when missing
//	db.delete('Dog', id)
//	db.ids('Dog')
var scriptTable = vm.NewWrapperTable[*Store]("Store", nil)

func init() {
	vm.Help.SetOnTable(scriptTable.DispatchTable, "Persistent storage for registered object types.")

	vm.Help.Set(scriptTable.Method("save", func(p *vm.Process, w *vm.Wrapper[*Store], args *vm.CallArgs) (vm.Value, error) {
		if err := args.RequireExactly(1); err != nil {
			return nil, err
		}
		id, err := w.Host().Save(context.Background(), p, args.Get(0))
		if err != nil {
			return nil, vm.Wrapf(p, err, "save")
		}
		return vm.String(id), nil
	}), "Stores an object and returns its id.")

	vm.Help.Set(scriptTable.Method("load", func(p *vm.Process, w *vm.Wrapper[*Store], args *vm.CallArgs) (vm.Value, error) {
		t, id, err := typeAndID(p, w.Host(), args)
		if err != nil {
			return nil, err
		}
		obj, err := w.Host().New(context.Background(), p, t, id)
		if errors.Is(err, ErrNotFound) {
			return vm.Null, nil
		}
		if err != nil {
			return nil, vm.Wrapf(p, err, "load")
		}
		return obj, nil
	}), "Loads an object by type name and id, or returns null.")

	vm.Help.Set(scriptTable.Method("delete", func(p *vm.Process, w *vm.Wrapper[*Store], args *vm.CallArgs) (vm.Value, error) {
		t, id, err := typeAndID(p, w.Host(), args)
		if err != nil {
			return nil, err
		}
		err = w.Host().Delete(context.Background(), t, id)
		if errors.Is(err, ErrNotFound) {
			return vm.Bool(false), nil
		}
		if err != nil {
			return nil, vm.Wrapf(p, err, "delete")
		}
		return vm.Bool(true), nil
	}), "Deletes an object by type name and id. Returns false if it did not exist.")

	scriptTable.Method("ids", func(p *vm.Process, w *vm.Wrapper[*Store], args *vm.CallArgs) (vm.Value, error) {
		if err := args.RequireExactly(1); err != nil {
			return nil, err
		}
		t, err := lookupType(p, w.Host(), args)
		if err != nil {
			return nil, err
		}
		ids, err := w.Host().IDs(context.Background(), t)
		if err != nil {
			return nil, vm.Wrapf(p, err, "ids")
		}
		out := make([]vm.Value, len(ids))
		for i, id := range ids {
			out[i] = vm.String(id)
		}
		return vm.NewList(out...), nil
	})
}

func lookupType(p *vm.Process, s *Store, args *vm.CallArgs) (*vm.DispatchTable, error) {
	name, err := args.String(0)
	if err != nil {
		return nil, err
	}
	t, ok := s.Type(name)
	if !ok {
		return nil, vm.NewError(p, vm.NameError, "no stored type '%s'", name)
	}
	return t, nil
}

func typeAndID(p *vm.Process, s *Store, args *vm.CallArgs) (*vm.DispatchTable, string, error) {
	if err := args.RequireExactly(2); err != nil {
		return nil, "", err
	}
	t, err := lookupType(p, s, args)
	if err != nil {
		return nil, "", err
	}
	id, err := args.String(1)
	if err != nil {
		return nil, "", err
	}
	return t, id, nil
}

// ScriptValue exposes the store to scripts.
func (s *Store) ScriptValue() vm.Value {
	return vm.Wrap(scriptTable, vm.KindWrapped, s)
}
