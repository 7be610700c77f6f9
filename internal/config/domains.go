package config

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// defaultPaywallPhrases are markers checked against fetched HTML when the
// fast extraction pass yields too little text.
var defaultPaywallPhrases = []string{
	"subscribe", "subscription", "sign in",
	"premium content", "premium article",
	"paid subscribers only",
}

// defaultPaywallDomains are subscription-only sites skipped before any
// network call is made.
var defaultPaywallDomains = []string{
	"wsj.com",
	"nytimes.com",
	"ft.com",
	"economist.com",
	"bloomberg.com",
	"washingtonpost.com",
	"theatlantic.com",
	"newyorker.com",
	"medium.com",
	"wired.com",
	"barrons.com",
	"forbes.com",
	"businessinsider.com",
	"insider.com",
	"buzzfeed.com",
	"understandingwar.org",
	"federalreserve.gov",
	"whitehouse.gov",
	"congress.gov",
	"justice.gov",
	"state.gov",
	"defense.gov",
	"cia.gov",
	"nsa.gov",
	"fbi.gov",
	"dhs.gov",
	"dod.gov",
	"nasa.gov",
	"treasury.gov",
	"scmp.com",
	"themoscowtimes.com",
	"freebeacon.com",
	"engadget.com",
	"prnewswire.com",
	"vaticannews.va",
	"churchofjesuschrist.org",
	"globenewswire.com",
}
