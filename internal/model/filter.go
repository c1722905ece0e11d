package model

import "strings"

// Flatten returns every element of the tree in depth-first order with
// children stripped.
func Flatten(elements []Element) []Element {
	var result []Element
	var walk func([]Element)
	walk = func(els []Element) {
		for _, el := range els {
			flat := el
			flat.Children = nil
			result = append(result, flat)
			walk(el.Children)
		}
	}
	walk(elements)
	return result
}

// FindFirst returns the first element in depth-first order whose role is
// one of roles (any role when empty) and whose name contains name
// (case-insensitive).
func FindFirst(elements []Element, roles []string, name string) (Element, bool) {
	roleSet := make(map[string]bool, len(roles))
	for _, r := range roles {
		roleSet[r] = true
	}
	nameLower := strings.ToLower(name)
	for _, el := range Flatten(elements) {
		if len(roleSet) > 0 && !roleSet[el.Role] {
			continue
		}
		if nameLower != "" && !strings.Contains(strings.ToLower(el.Name), nameLower) {
			continue
		}
		return el, true
	}
	return Element{}, false
}
