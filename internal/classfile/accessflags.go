package classfile

// AccessFlags is the raw bitfield attached to a class, field, or method,
// per JVMS Table 4.1-A / 4.5-A / 4.6-A.
type AccessFlags uint16

const (
	AccPublic       AccessFlags = 0x0001
	AccPrivate      AccessFlags = 0x0002
	AccProtected    AccessFlags = 0x0004
	AccStatic       AccessFlags = 0x0008
	AccFinal        AccessFlags = 0x0010
	AccSuper        AccessFlags = 0x0020 // == AccSynchronized for methods
	AccSynchronized AccessFlags = 0x0020
	AccVolatile     AccessFlags = 0x0040 // == AccBridge for methods
	AccBridge       AccessFlags = 0x0040
	AccTransient    AccessFlags = 0x0080 // == AccVarargs for methods
	AccVarargs      AccessFlags = 0x0080
	AccNative       AccessFlags = 0x0100
	AccInterface    AccessFlags = 0x0200
	AccAbstract     AccessFlags = 0x0400
	AccStrict       AccessFlags = 0x0800
	AccSynthetic    AccessFlags = 0x1000
	AccAnnotation   AccessFlags = 0x2000
	AccEnum         AccessFlags = 0x4000
	AccModule       AccessFlags = 0x8000
)

func (f AccessFlags) Has(bit AccessFlags) bool { return f&bit != 0 }

func (f AccessFlags) IsPublic() bool       { return f.Has(AccPublic) }
func (f AccessFlags) IsPrivate() bool      { return f.Has(AccPrivate) }
func (f AccessFlags) IsProtected() bool    { return f.Has(AccProtected) }
func (f AccessFlags) IsStatic() bool       { return f.Has(AccStatic) }
func (f AccessFlags) IsFinal() bool        { return f.Has(AccFinal) }
func (f AccessFlags) IsSynchronized() bool { return f.Has(AccSynchronized) }
func (f AccessFlags) IsVolatile() bool     { return f.Has(AccVolatile) }
func (f AccessFlags) IsTransient() bool    { return f.Has(AccTransient) }
func (f AccessFlags) IsBridge() bool       { return f.Has(AccBridge) }
func (f AccessFlags) IsVarargs() bool      { return f.Has(AccVarargs) }
func (f AccessFlags) IsNative() bool       { return f.Has(AccNative) }
func (f AccessFlags) IsInterface() bool    { return f.Has(AccInterface) }
func (f AccessFlags) IsAbstract() bool     { return f.Has(AccAbstract) }
func (f AccessFlags) IsStrict() bool       { return f.Has(AccStrict) }
func (f AccessFlags) IsSynthetic() bool    { return f.Has(AccSynthetic) }
func (f AccessFlags) IsAnnotation() bool   { return f.Has(AccAnnotation) }
func (f AccessFlags) IsEnum() bool         { return f.Has(AccEnum) }
