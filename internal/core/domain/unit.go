package domain

// UnitOfWork is everything the compiler service needs to compile one module.
type UnitOfWork struct {
	ID          string             `json:"id"`
	Module      string             `json:"module"`
	Sources     []string           `json:"sources"`
	OutputDir   string             `json:"outputDir"`
	Classpath   string             `json:"classpath"`
	Incremental *IncrementalConfig `json:"incremental,omitempty"`
}

// NewUnitOfWork describes the compilation of m with the given classpath and incremental configuration.
func NewUnitOfWork(id string, m *Module, classpath []string, ic *IncrementalConfig) *UnitOfWork {
	return &UnitOfWork{
		ID:          id,
		Module:      m.Name(),
		Sources:     m.SourceFiles(),
		OutputDir:   m.OutputDir(),
		Classpath:   JoinClasspath(classpath),
		Incremental: ic,
	}
}

// ClasspathEntries returns the classpath split into its entries.
func (u *UnitOfWork) ClasspathEntries() []string {
	return SplitClasspath(u.Classpath)
}
