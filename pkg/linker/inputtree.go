package linker

// Attribute is the positional option state attached to each input as it
// is appended: --whole-archive, --as-needed, --add-needed and
// -Bstatic/-Bdynamic are sticky until their negation appears.
type Attribute struct {
	WholeArchive bool
	AsNeeded     bool
	AddNeeded    bool
	Static       bool
}

// Input is one leaf of the input tree.
type Input struct {
	File *File
	Type InputType
	Attr Attribute
}

func NewInput(file *File, attr Attribute) *Input {
	ty := GetInputType(file.Contents)
	return &Input{File: file, Type: ty, Attr: attr}
}

// InputNode is either a leaf holding an Input or a group marker whose
// children re-iterate to a fixed point.
type InputNode struct {
	Group    bool
	Input    *Input
	Children []*InputNode
}

type InputTree struct {
	Roots []*InputNode
}

func NewInputTree() *InputTree {
	return &InputTree{}
}

// InputBuilder appends leaves and group brackets to the tree while
// tracking the sticky positional attributes.
type InputBuilder struct {
	cfg  *Config
	tree *InputTree
	attr Attribute

	open []*InputNode
}

func NewInputBuilder(cfg *Config, tree *InputTree) *InputBuilder {
	return &InputBuilder{cfg: cfg, tree: tree}
}

func (b *InputBuilder) append(node *InputNode) {
	if n := len(b.open); n > 0 {
		parent := b.open[n-1]
		parent.Children = append(parent.Children, node)
		return
	}
	b.tree.Roots = append(b.tree.Roots, node)
}

// AddFile appends a path argument.
func (b *InputBuilder) AddFile(path string) error {
	file, err := NewFile(path)
	if err != nil {
		return err
	}
	b.append(&InputNode{Input: NewInput(file, b.attr)})
	return nil
}

// AddNamespec appends a -l argument, searching the library paths in the
// order the current -Bstatic/-Bdynamic state dictates.
func (b *InputBuilder) AddNamespec(name string) error {
	file, err := FindLibrary(b.cfg, name, b.attr.Static)
	if err != nil {
		return err
	}
	b.append(&InputNode{Input: NewInput(file, b.attr)})
	return nil
}

func (b *InputBuilder) StartGroup() error {
	if len(b.open) > 0 {
		return errorf(ErrConfig, "nested --start-group")
	}
	node := &InputNode{Group: true}
	b.append(node)
	b.open = append(b.open, node)
	return nil
}

func (b *InputBuilder) EndGroup() error {
	if len(b.open) == 0 {
		return errorf(ErrConfig, "--end-group without --start-group")
	}
	b.open = b.open[:len(b.open)-1]
	return nil
}

func (b *InputBuilder) WholeArchive()   { b.attr.WholeArchive = true }
func (b *InputBuilder) NoWholeArchive() { b.attr.WholeArchive = false }
func (b *InputBuilder) AsNeeded()       { b.attr.AsNeeded = true }
func (b *InputBuilder) NoAsNeeded()     { b.attr.AsNeeded = false }
func (b *InputBuilder) CopyDTNeeded()   { b.attr.AddNeeded = true }
func (b *InputBuilder) NoCopyDTNeeded() { b.attr.AddNeeded = false }
func (b *InputBuilder) AgainstShared()  { b.attr.Static = false }
func (b *InputBuilder) AgainstStatic()  { b.attr.Static = true }
