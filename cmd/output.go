package cmd

import (
	"fmt"
	"io"

	"github.com/C-Sto/gowinreg/pkg/asyncreg"
	"github.com/C-Sto/gowinreg/pkg/winreg"
	"github.com/Velocidex/ordereddict"
	"github.com/goccy/go-json"
)

func valueName(name string) string {
	if name == asyncreg.DEFAULT_VALUE {
		return "(Default)"
	}
	return name
}

// writeText prints results the way reg.exe QUERY does.
func writeText(w io.Writer, reg *asyncreg.Registry, res any) error {
	var err error
	switch v := res.(type) {
	case []*asyncreg.RegistryItem:
		if _, err = fmt.Fprintf(w, "%s\n", reg.Path()); err != nil {
			return err
		}
		for _, item := range v {
			if _, err = fmt.Fprintf(w, "    %s    %s    %s\n", valueName(item.Name), item.Type, item.Value); err != nil {
				return err
			}
		}
	case *asyncreg.RegistryItem:
		_, err = fmt.Fprintf(w, "%s\n    %s    %s    %s\n", reg.Path(), valueName(v.Name), v.Type, v.Value)
	case []*winreg.Registry:
		for _, k := range v {
			if _, err = fmt.Fprintln(w, k.Path()); err != nil {
				return err
			}
		}
	case bool:
		_, err = fmt.Fprintln(w, v)
	case completed:
		_, err = fmt.Fprintln(w, "The operation completed successfully.")
	default:
		err = fmt.Errorf("unexpected result %T", res)
	}
	return err
}

func itemDict(item *asyncreg.RegistryItem) *ordereddict.Dict {
	return ordereddict.NewDict().
		Set("name", item.Name).
		Set("type", item.Type).
		Set("value", item.Value)
}

func writeJSON(w io.Writer, runID, op string, reg *asyncreg.Registry, res any) error {
	doc := ordereddict.NewDict().
		Set("run", runID).
		Set("op", op).
		Set("path", reg.Path())
	switch v := res.(type) {
	case []*asyncreg.RegistryItem:
		items := make([]*ordereddict.Dict, 0, len(v))
		for _, item := range v {
			items = append(items, itemDict(item))
		}
		doc.Set("values", items)
	case *asyncreg.RegistryItem:
		doc.Set("value", itemDict(v))
	case []*winreg.Registry:
		keys := make([]string, 0, len(v))
		for _, k := range v {
			keys = append(keys, k.Path())
		}
		doc.Set("keys", keys)
	case bool:
		doc.Set("exists", v)
	case completed:
		doc.Set("ok", true)
	default:
		return fmt.Errorf("unexpected result %T", res)
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", b)
	return err
}
