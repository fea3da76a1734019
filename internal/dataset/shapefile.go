package dataset

import (
	"os"
	"strings"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"

	"github.com/sells-group/reviewpower/internal/model"
)

// Shapefile attribute columns. dBASE limits field names to 10 characters.
var shapeFields = []shp.Field{
	shp.StringField("BIZ_ID", 32),
	shp.StringField("NAME", 120),
	shp.StringField("CITY", 60),
	shp.StringField("STATE", 4),
	shp.FloatField("STARS_AVG", 8, 3),
	shp.NumberField("REVIEWS", 10),
	shp.FloatField("RPS", 12, 4),
	shp.NumberField("CLUSTER", 4),
	shp.StringField("SECTOR", 24),
}

// WriteShapefile writes one point per business (lon/lat, WGS84) to path,
// which must end in .shp; the .shx and .dbf siblings are created alongside.
func WriteShapefile(path string, rows []model.BusinessRecord) error {
	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return eris.Wrapf(err, "dataset: create shapefile %s", path)
	}

	werr := writeShapes(w, rows)
	w.Close()
	if werr != nil {
		return werr
	}

	// go-shp names the attribute table "<base>dbf"; readers expect "<base>.dbf".
	base := path
	if strings.HasSuffix(strings.ToLower(base), ".shp") {
		base = base[:len(base)-4]
	}
	return eris.Wrapf(os.Rename(base+"dbf", base+".dbf"), "dataset: rename attribute table of %s", path)
}

func writeShapes(w *shp.Writer, rows []model.BusinessRecord) error {
	if err := w.SetFields(shapeFields); err != nil {
		return eris.Wrap(err, "dataset: set shapefile fields")
	}

	for _, r := range rows {
		idx := int(w.Write(&shp.Point{X: r.Longitude, Y: r.Latitude}))
		attrs := []any{
			r.BusinessID, r.Name, r.City, r.State,
			r.StarsAvg, r.ReviewCount, r.ReviewPowerScore, r.Cluster, string(r.Sector),
		}
		for field, v := range attrs {
			if s, ok := v.(string); ok {
				v = truncateBytes(s, int(shapeFields[field].Size))
			}
			if err := w.WriteAttribute(idx, field, v); err != nil {
				return eris.Wrapf(err, "dataset: write attribute %d of %s", field, r.BusinessID)
			}
		}
	}
	return nil
}

// truncateBytes shortens s to at most n bytes without splitting a rune.
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
