package emiswap

// Minimal EmiSwap ABIs with only the events the engine consumes.

const FactoryABI = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "pair",   "type": "address"},
      {"indexed": true, "internalType": "address", "name": "token1", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "token2", "type": "address"}
    ],
    "name": "Deployed",
    "type": "event"
  }
]`

const PairABI = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true,  "internalType": "address", "name": "from",  "type": "address"},
      {"indexed": true,  "internalType": "address", "name": "to",    "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "value", "type": "uint256"}
    ],
    "name": "Transfer",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true,  "internalType": "address", "name": "account", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amount",  "type": "uint256"}
    ],
    "name": "Deposited",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true,  "internalType": "address", "name": "account", "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amount",  "type": "uint256"}
    ],
    "name": "Withdrawn",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true,  "internalType": "address", "name": "account",     "type": "address"},
      {"indexed": true,  "internalType": "address", "name": "src",         "type": "address"},
      {"indexed": true,  "internalType": "address", "name": "dst",         "type": "address"},
      {"indexed": false, "internalType": "uint256", "name": "amount",      "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "result",      "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "srcBalance",  "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "dstBalance",  "type": "uint256"},
      {"indexed": false, "internalType": "uint256", "name": "totalSupply", "type": "uint256"},
      {"indexed": false, "internalType": "address", "name": "referral",    "type": "address"}
    ],
    "name": "Swapped",
    "type": "event"
  }
]`
