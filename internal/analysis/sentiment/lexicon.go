package sentiment

// lexicon 英文词汇的情感强度，取值范围 [-4, 4]。
var lexicon = map[string]float64{
	// positive
	"good": 1.9, "great": 3.1, "awesome": 3.1, "amazing": 2.8, "excellent": 3.2, "fantastic": 2.6,
	"wonderful": 2.7, "lovely": 2.8, "love": 3.2, "loved": 2.9, "loving": 2.9, "like": 1.5, "liked": 1.8,
	"happy": 2.7, "happier": 2.4, "glad": 2.0, "joy": 2.8, "joyful": 2.9, "fun": 2.3, "nice": 1.8,
	"beautiful": 2.9, "best": 3.2, "better": 1.9, "calm": 1.3, "relaxed": 2.2, "peaceful": 2.2,
	"hope": 1.9, "hopeful": 2.3, "proud": 2.1, "grateful": 2.0, "thankful": 2.7, "thanks": 1.9,
	"thank": 1.5, "excited": 1.4, "exciting": 2.2, "enjoy": 2.2, "enjoyed": 2.3, "smile": 1.5,
	"laugh": 2.6, "win": 2.8, "won": 2.7, "success": 2.7, "successful": 2.8, "safe": 1.9,
	"support": 1.7, "supported": 1.8, "kind": 2.4, "friendly": 2.2, "cool": 1.3, "perfect": 2.7,
	"okay": 0.9, "ok": 1.2, "fine": 0.8, "positive": 2.6, "confident": 2.2, "motivated": 1.6,
	"strong": 2.3, "comfort": 1.5, "comfortable": 2.3, "brave": 2.4, "care": 2.2, "cared": 1.8,
	"delighted": 3.1, "pleased": 1.9, "satisfied": 1.8, "inspired": 2.2, "blessed": 2.9,
	"yes": 1.7, "wow": 2.8, "lol": 2.9, "haha": 2.0,

	// negative
	"bad": -2.5, "worse": -2.1, "worst": -3.1, "terrible": -2.1, "awful": -2.0, "horrible": -2.5,
	"sad": -2.1, "sadness": -1.9, "unhappy": -1.8, "depressed": -2.3, "depressing": -1.6,
	"depression": -2.7, "cry": -2.1, "crying": -2.1, "cried": -1.6, "tears": -0.9, "hurt": -2.4,
	"pain": -2.3, "painful": -1.9, "lonely": -2.0, "alone": -1.0, "anxious": -1.0, "anxiety": -0.7,
	"worried": -1.2, "worry": -1.9, "scared": -2.2, "afraid": -2.0, "fear": -2.2, "nervous": -1.1,
	"stress": -1.8, "stressed": -1.4, "stressful": -2.3, "tired": -1.9, "exhausted": -1.5,
	"angry": -2.3, "anger": -2.7, "mad": -2.2, "furious": -2.6, "hate": -2.7, "hated": -3.2,
	"annoyed": -1.6, "annoying": -1.8, "upset": -1.6, "frustrated": -2.3, "frustrating": -1.9,
	"disappointed": -1.9, "disappointing": -2.2, "fail": -2.5, "failed": -2.3, "failure": -2.3,
	"lost": -1.3, "lose": -1.7, "broken": -2.0, "miserable": -2.2, "hopeless": -2.0,
	"worthless": -1.9, "useless": -1.8, "sick": -2.3, "ill": -1.9, "wrong": -2.1, "problem": -1.7,
	"problems": -1.7, "difficult": -1.5, "hard": -0.4, "struggle": -1.3, "struggling": -1.4,
	"guilty": -1.8, "ashamed": -2.1, "shame": -2.1, "empty": -0.8, "numb": -1.0, "panic": -2.3,
	"grief": -2.2, "die": -2.9, "dead": -3.3, "death": -2.9, "kill": -3.7, "suicide": -3.5,
	"no": -1.2, "never": -0.4, "ugh": -1.8, "boring": -1.3, "bored": -1.1, "nothing": -0.3,
}

// cjkLexicon 中文短语按子串匹配，延续关键词桶的做法。
var cjkLexicon = map[string]float64{
	"开心": 2.7, "高兴": 2.7, "快乐": 2.8, "喜欢": 2.0, "满意": 1.9, "太好了": 3.0, "太棒了": 3.1,
	"期待": 1.8, "放松": 2.0, "安心": 1.8, "感谢": 2.2, "谢谢": 1.9, "温暖": 2.2,
	"难过": -2.1, "伤心": -2.3, "失落": -1.8, "沮丧": -2.0, "悲伤": -2.3, "痛苦": -2.5, "寂寞": -1.9,
	"孤单": -1.9, "失望": -1.9, "心碎": -2.8, "低落": -1.8, "委屈": -1.6, "焦虑": -1.9, "害怕": -2.0,
	"生气": -2.3, "愤怒": -2.6, "烦": -1.5, "累": -1.4, "崩溃": -2.8, "绝望": -3.0,
}

// boosters 程度副词，正负号表示增强或减弱。
var boosters = map[string]float64{
	"absolutely": boostIncr, "completely": boostIncr, "extremely": boostIncr, "incredibly": boostIncr,
	"really": boostIncr, "so": boostIncr, "totally": boostIncr, "very": boostIncr, "truly": boostIncr,
	"deeply": boostIncr, "super": boostIncr, "especially": boostIncr, "too": boostIncr,
	"barely": boostDecr, "hardly": boostDecr, "slightly": boostDecr, "somewhat": boostDecr,
	"kinda": boostDecr, "sorta": boostDecr, "little": boostDecr, "almost": boostDecr,
}

var negations = map[string]struct{}{
	"not": {}, "no": {}, "never": {}, "none": {}, "nobody": {}, "nothing": {}, "neither": {},
	"nor": {}, "nowhere": {}, "cannot": {}, "without": {}, "isnt": {}, "arent": {}, "wasnt": {},
	"werent": {}, "dont": {}, "doesnt": {}, "didnt": {}, "cant": {}, "couldnt": {}, "wont": {},
	"wouldnt": {}, "shouldnt": {}, "aint": {}, "havent": {}, "hasnt": {}, "hadnt": {},
}

var cjkNegations = []string{"不", "没", "别"}
