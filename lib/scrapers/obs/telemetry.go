package obs

import (
	"obswatch/lib/restyutil"
	"obswatch/lib/telemetry"
)

var tracer = telemetry.Tracer("obswatch.lib.scrapers.obs")
var restyInstrumentOutput restyutil.InstrumentOutput

func SetRestyInstrumentOutput(out restyutil.InstrumentOutput) {
	restyInstrumentOutput = out
}
