package excel

import "github.com/oslomod/teotil3-scenarios/internal/domain"

// Workbooks implements pipeline.Workbooks on the local filesystem.
type Workbooks struct{}

func (Workbooks) ReadSites(path, sector string) (*domain.SiteTable, error) {
	return ReadSites(path, sector)
}

func (Workbooks) WriteSites(path string, tbl *domain.SiteTable) error {
	return WriteSites(path, tbl)
}

func (Workbooks) CopyFile(src, dst string) error {
	return CopyFile(src, dst)
}

func (Workbooks) RewriteMetals(src, dst string, types map[domain.SiteKey]string) error {
	return RewriteMetals(src, dst, types)
}
