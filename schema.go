package raftspec

// Field families used by merge precedence.
const (
	FamilyAdministrative = "administrative"
	FamilyTechnical      = "technical"
)

// Field names shipped with the default rule table.
const (
	FieldCapacity            = "capacity"
	FieldCO2Charge           = "co2_charge"
	FieldNitrogenCharge      = "nitrogen_charge"
	FieldPackedWeight        = "packed_weight"
	FieldCylinderReference   = "cylinder_reference"
	FieldWorkingPressure     = "working_pressure"
	FieldWeakLink            = "weak_link"
	FieldTorque              = "torque"
	FieldDavitLaunch         = "davit_launch"
	FieldDavitCapacities     = "davit_capacities"
	FieldValveModel          = "valve_model"
	FieldInflationSystem     = "inflation_system"
	FieldCertificateNumber   = "certificate_number"
	FieldSerialNumber        = "serial_number"
	FieldManufactureDate     = "manufacture_date"
	FieldInspectionDate      = "inspection_date"
	FieldNextInspectionDate  = "next_inspection_date"
	FieldBrandModel          = "brand_model"
	FieldVesselName          = "vessel_name"
	FieldPackType            = "pack_type"
	FieldHydrostaticTestDate = "hydrostatic_test_date"
	FieldCylinderSerial      = "cylinder_serial"
	FieldPackExpiryDate      = "pack_expiry_date"
	FieldPainterLength       = "painter_length"
	FieldComponentValidity   = "component_validity"
)

// FieldSpec describes a field.
type FieldSpec struct {
	Name     string
	Family   string
	Required bool

	// Multi fields keep every distinct value instead of one best value.
	Multi bool

	// Anchor marks the field whose matches anchor context windows.
	Anchor bool

	// Indexed fields are gathered around anchors and keyed by anchor label.
	Indexed bool

	// Unit is the canonical unit quantities are reported in. Empty means the
	// reference unit of the quantity's dimension.
	Unit Unit
}

// Schema is an ordered set of field specs.
type Schema struct {
	specs map[string]FieldSpec
	order []string
}

// NewSchema returns a schema holding specs in order.
func NewSchema(specs ...FieldSpec) (*Schema, error) {
	s := &Schema{specs: make(map[string]FieldSpec)}
	for _, spec := range specs {
		if err := s.Add(spec); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add appends a field spec. Field names must be unique and at most one field
// may be the anchor.
func (s *Schema) Add(spec FieldSpec) error {
	if spec.Name == "" {
		return Errorf(EINVALID, "field name required")
	}
	if _, ok := s.specs[spec.Name]; ok {
		return Errorf(EINVALID, "field %q declared twice", spec.Name)
	}
	if spec.Anchor {
		if a, ok := s.Anchor(); ok {
			return Errorf(EINVALID, "field %q: anchor already declared by %q", spec.Name, a.Name)
		}
		if spec.Indexed {
			return Errorf(EINVALID, "field %q: anchor cannot be indexed", spec.Name)
		}
	}
	if spec.Unit != "" && spec.Unit.Dimension() == "" {
		return Errorf(EINVALID, "field %q: unknown unit %q", spec.Name, spec.Unit)
	}
	s.specs[spec.Name] = spec
	s.order = append(s.order, spec.Name)
	return nil
}

// Lookup returns the spec for a field.
func (s *Schema) Lookup(name string) (FieldSpec, bool) {
	spec, ok := s.specs[name]
	return spec, ok
}

// Fields returns all specs in declaration order.
func (s *Schema) Fields() []FieldSpec {
	specs := make([]FieldSpec, len(s.order))
	for i, name := range s.order {
		specs[i] = s.specs[name]
	}
	return specs
}

// Anchor returns the anchor field, if any.
func (s *Schema) Anchor() (FieldSpec, bool) {
	for _, name := range s.order {
		if s.specs[name].Anchor {
			return s.specs[name], true
		}
	}
	return FieldSpec{}, false
}

// Direct returns the names of fields extracted over whole blocks.
func (s *Schema) Direct() []string {
	return s.names(func(f FieldSpec) bool { return !f.Indexed })
}

// Indexed returns the names of fields gathered around anchors.
func (s *Schema) Indexed() []string {
	return s.names(func(f FieldSpec) bool { return f.Indexed })
}

// Required returns the names of required fields.
func (s *Schema) Required() []string {
	return s.names(func(f FieldSpec) bool { return f.Required })
}

func (s *Schema) names(keep func(FieldSpec) bool) []string {
	var names []string
	for _, name := range s.order {
		if keep(s.specs[name]) {
			names = append(names, name)
		}
	}
	return names
}
