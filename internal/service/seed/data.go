package seed

var artistNames = []string{
	"Drake",
	"Taylor Swift",
	"The Weeknd",
	"Billie Eilish",
	"Kendrick Lamar",
	"Dua Lipa",
	"Bad Bunny",
	"Adele",
	"Post Malone",
	"Rosalia",
	"Arctic Monkeys",
	"SZA",
	"Travis Scott",
	"Olivia Rodrigo",
	"Migos",
}

var locationAddresses = []string{
	"Event Hall, New York, NY, USA",
	"Madison Square Garden, New York, NY, USA",
	"The O2 Arena, London, UK",
	"Accor Arena, Paris, France",
	"Ziggo Dome, Amsterdam, Netherlands",
	"Mercedes-Benz Arena, Berlin, Germany",
	"Scotiabank Arena, Toronto, Canada",
	"Crypto.com Arena, Los Angeles, CA, USA",
	"United Center, Chicago, IL, USA",
	"Tokyo Dome, Tokyo, Japan",
	"Qudos Bank Arena, Sydney, Australia",
	"Forest National, Brussels, Belgium",
}
