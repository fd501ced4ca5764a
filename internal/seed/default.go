package seed

func intp(v int) *int { return &v }

// Default returns the built-in grid and a three-race calendar around the
// time the seed is applied: one race in the past, two upcoming.
func Default() File {
	return File{
		Drivers: []Driver{
			{Name: "Max Verstappen", Number: 1, Team: "Red Bull Racing", Code: "VER"},
			{Name: "Sergio Perez", Number: 11, Team: "Red Bull Racing", Code: "PER"},
			{Name: "Charles Leclerc", Number: 16, Team: "Ferrari", Code: "LEC"},
			{Name: "Carlos Sainz", Number: 55, Team: "Ferrari", Code: "SAI"},
			{Name: "Lewis Hamilton", Number: 44, Team: "Mercedes", Code: "HAM"},
			{Name: "George Russell", Number: 63, Team: "Mercedes", Code: "RUS"},
			{Name: "Lando Norris", Number: 4, Team: "McLaren", Code: "NOR"},
			{Name: "Oscar Piastri", Number: 81, Team: "McLaren", Code: "PIA"},
			{Name: "Fernando Alonso", Number: 14, Team: "Aston Martin", Code: "ALO"},
			{Name: "Lance Stroll", Number: 18, Team: "Aston Martin", Code: "STR"},
			{Name: "Esteban Ocon", Number: 31, Team: "Alpine", Code: "OCO"},
			{Name: "Pierre Gasly", Number: 10, Team: "Alpine", Code: "GAS"},
			{Name: "Daniel Ricciardo", Number: 3, Team: "RB", Code: "RIC"},
			{Name: "Yuki Tsunoda", Number: 22, Team: "RB", Code: "TSU"},
			{Name: "Alexander Albon", Number: 23, Team: "Williams", Code: "ALB"},
			{Name: "Logan Sargeant", Number: 2, Team: "Williams", Code: "SAR"},
			{Name: "Valtteri Bottas", Number: 77, Team: "Kick Sauber", Code: "BOT"},
			{Name: "Zhou Guanyu", Number: 24, Team: "Kick Sauber", Code: "ZHO"},
			{Name: "Kevin Magnussen", Number: 20, Team: "Haas F1 Team", Code: "MAG"},
			{Name: "Nico Hulkenberg", Number: 27, Team: "Haas F1 Team", Code: "HUL"},
		},
		Races: []Race{
			{ID: "2025-aus", Name: "Australian Grand Prix", Location: "Melbourne", InDays: intp(-10), Season: 2025, Round: 3},
			{ID: "2025-jpn", Name: "Japanese Grand Prix", Location: "Suzuka", InDays: intp(5), Season: 2025, Round: 4},
			{ID: "2025-mia", Name: "Miami Grand Prix", Location: "Miami", InDays: intp(20), Season: 2025, Round: 5},
		},
	}
}
