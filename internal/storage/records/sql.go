package records

import (
	"github.com/doug-martin/goqu/v9"

	"readinglog/internal/types"
)

type sqlRecord struct {
	Id            int64  `db:"id" goqu:"skipinsert,skipupdate"`
	Isbn13        string `db:"isbn13"`
	Title         string `db:"title"`
	Author        string `db:"author"`
	Description   string `db:"description"`
	PublishedDate string `db:"published_date"`
	Publisher     string `db:"publisher"`
	Thumbnail     string `db:"thumbnail"`
	ReadDate      string `db:"read_date"`
	Rating        *int   `db:"rating"`
	Comment       string `db:"comment"`
	ReadingStatus string `db:"reading_status"`
	AmazonLink    string `db:"amazon_link"`
}

func fromCommon(rec *types.ReadingRecord) sqlRecord {
	return sqlRecord{
		Isbn13:        rec.Isbn13,
		Title:         rec.Title,
		Author:        rec.Author,
		Description:   rec.Description,
		PublishedDate: rec.PublishedDate,
		Publisher:     rec.Publisher,
		Thumbnail:     rec.Thumbnail,
		ReadDate:      rec.ReadDate,
		Rating:        rec.Rating,
		Comment:       rec.Comment,
		ReadingStatus: rec.ReadingStatus,
		AmazonLink:    rec.AmazonLink,
	}
}

func (r *sqlRecord) intoCommon() types.ReadingRecord {
	return types.ReadingRecord{
		Isbn13:        r.Isbn13,
		Title:         r.Title,
		Author:        r.Author,
		Description:   r.Description,
		PublishedDate: r.PublishedDate,
		Publisher:     r.Publisher,
		Thumbnail:     r.Thumbnail,
		ReadDate:      r.ReadDate,
		Rating:        r.Rating,
		Comment:       r.Comment,
		ReadingStatus: r.ReadingStatus,
		AmazonLink:    r.AmazonLink,
	}
}

// firstWithIsbn matches the oldest row holding isbn13. from is a dataset over the records table in the
// caller's dialect.
func firstWithIsbn(from *goqu.SelectDataset, isbn13 string) goqu.Expression {
	return goqu.C("id").Eq(
		from.
			Select(goqu.MIN("id")).
			Where(goqu.C("isbn13").Eq(isbn13)),
	)
}

func intoCommons(rows []sqlRecord) []types.ReadingRecord {
	ret := make([]types.ReadingRecord, 0, len(rows))
	for i := range rows {
		ret = append(ret, rows[i].intoCommon())
	}
	return ret
}
