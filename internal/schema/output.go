package schema

// basePass registers every entity's output descriptor with scalar fields only. The
// identifier is kept unless the config excludes it explicitly.
func (c *BuildContext) basePass() {
	for _, name := range c.order {
		e := c.entities[name]
		fc := c.configs[name].Fields
		d := &TypeDescriptor{Name: OutputName(name), Kind: KindOutput, Entity: name}

		pk := e.PrimaryName()
		if !fc.Exclude.Has(pk) {
			d.Fields = append(d.Fields, FieldDef{Name: pk, Type: scalarRef(ScalarID).required()})
		}
		for _, f := range e.Fields {
			if f.Name == pk || !fc.Allows(f.Name) {
				continue
			}
			ref := c.fieldRef(name, f)
			if !f.Nullable {
				ref = ref.required()
			}
			d.Fields = append(d.Fields, FieldDef{Name: f.Name, Type: ref})
		}
		c.registry.Register(d)
	}
}

// relationPass records, for every included relationship that is not cut, the base
// descriptor of its target. Field lists are left untouched.
func (c *BuildContext) relationPass() {
	for _, name := range c.order {
		d, _ := c.registry.Output(name)
		cfg := c.configs[name]
		for _, r := range c.entities[name].Relationships {
			rc, ok := cfg.Relationships[r.Name]
			if !ok || !rc.Include {
				continue
			}
			if c.cuts.Has(name, r.Name) {
				c.logger.Debug("relationship cut from output", "entity", name, "relationship", r.Name)
				continue
			}
			target, ok := c.registry.Output(r.Target)
			if !ok {
				c.logger.Debug("relationship target not generated", "entity", name, "relationship", r.Name, "target", r.Target)
				continue
			}
			d.Relations = append(d.Relations, RelationMeta{Relationship: r, Target: target.Index})
		}
	}
}

// materializePass attaches relationship fields from the recorded metadata. Single forward
// references are nullable; collections and every reverse relationship are [T!]!.
func (c *BuildContext) materializePass() {
	for _, name := range c.order {
		d, _ := c.registry.Output(name)
		for i := range d.Relations {
			m := d.Relations[i]
			ref := typeRef(c.registry.At(m.Target))
			if m.Relationship.IsMany() || m.Relationship.IsReverse() {
				ref = ref.listOf().required()
			}
			d.Fields = append(d.Fields, FieldDef{Name: m.Relationship.Name, Type: ref, Relation: &d.Relations[i].Relationship})
		}
	}
}
